package common

import (
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// KV is a storage view of a single contract.
type KV interface {
	Get(key []byte) []byte
	Put(key, value []byte)
	Delete(key []byte)
}

// SetSerialized serializes data and puts it into contract storage.
func SetSerialized(st KV, key []byte, value stackitem.Convertible) error {
	data, err := stackitem.SerializeConvertible(value)
	if err != nil {
		return err
	}
	st.Put(key, data)
	return nil
}

// GetSerialized reads the value stored by SetSerialized. It returns false if
// there is no value under the key.
func GetSerialized(st KV, key []byte, value stackitem.Convertible) (bool, error) {
	data := st.Get(key)
	if data == nil {
		return false, nil
	}
	return true, stackitem.DeserializeConvertible(data, value)
}

// PutInt stores integer value. Zero values are deleted.
func PutInt(st KV, key []byte, v int64) {
	if v == 0 {
		st.Delete(key)
		return
	}
	st.Put(key, bigint.ToBytes(big.NewInt(v)))
}

// GetInt reads the value stored by PutInt, missing values are zero.
func GetInt(st KV, key []byte) int64 {
	data := st.Get(key)
	if data == nil {
		return 0
	}
	return bigint.FromBytes(data).Int64()
}
