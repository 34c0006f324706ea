/*
Package settlement provides the runtime transfer contracts are executed in.

Ledger executes invocations one at a time. Every invocation works on its own
staging overlay (storage.MemCachedStore) above the backing store: if the
invocation returns an error or panics, the overlay is dropped and no effect of
the invocation is visible; otherwise the overlay is flushed into the backing
store in a single batch. Cross-contract calls and native value pushes open
nested overlays, so a failed nested call leaves its caller's state untouched.

Native value is accounted by the Ledger itself. It is moved into the invoked
contract when an invocation carries a value and out of it with
Context.TransferNative. A contract deployed to the Ledger accepts pushed value
only if it implements PaymentReceiver.

Committed invocations are reported to Observers together with the
notifications produced by contracts.
*/
package settlement
