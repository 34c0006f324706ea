/*
Package txlogger implements the transfer gateway contract.

The gateway moves value from the caller to one or many receivers as a single
indivisible operation: either every receiver is paid in full or nobody is,
and the gateway never keeps anything from the request. It settles either in
native value attached to the invocation or in tokens of the configured asset
contract pulled with the caller's allowance. Settlement mode, minimum leg
amount and the asset contract are fixed at construction.

Every request passes validation before any value moves:

  - receiver and amount lists must have the same length;
  - in native mode, attached value must be equal to the sum of amounts, in
    token mode no value can be attached;
  - every amount must be at least the configured minimum.

Legs are then executed in receiver order. The first failing leg aborts the
whole request and everything done by the previous legs is discarded by the
enclosing invocation.

# Contract notifications

TransactionSent notification. It is produced for every leg of a committed
request, in receiver order. All notifications of the request share the same
timestamp, commit instant of the request in milliseconds.

	TransactionSent:
	  - name: sender
	    type: Hash160
	  - name: receiver
	    type: Hash160
	  - name: amount
	    type: Integer
	  - name: timestamp
	    type: Integer
*/
package txlogger
