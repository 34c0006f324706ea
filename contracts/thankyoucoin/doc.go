/*
Package thankyoucoin implements ThankYouCoin contract: a fungible token with
owner-gated issuance and delegated spending.

ThankYouCoin keeps a balance per holder and a spend ceiling per (holder,
spender) pair. A spender moves tokens out of the holder's balance with
TransferFrom up to the approved ceiling, which is decreased by the moved
amount. The transfer gateway settles its token mode with TransferFrom, so
holders approve the gateway before sending tokens through it.

On the first deployment, the initial supply is issued to the owner. Further
issuance is allowed only to callers passing the minter capability given at
construction.

# Contract notifications

Transfer notification. It is produced on every balance movement including
issuance, in which case 'from' is Null.

	Transfer:
	  - name: from
	    type: Hash160
	  - name: to
	    type: Hash160
	  - name: amount
	    type: Integer

Approval notification. It is produced when a holder sets a spend ceiling.

	Approval:
	  - name: owner
	    type: Hash160
	  - name: spender
	    type: Hash160
	  - name: amount
	    type: Integer
*/
package thankyoucoin
