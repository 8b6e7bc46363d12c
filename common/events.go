package common

// Events emitted by the client router
const (
	EventAliceKey             = "alice_key"
	EventReconcileKey         = "reconcile_key"
	EventAliceMessage         = "alice_message"
	EventBobDecode            = "bob_decode"
	EventEveDecode            = "eve_decode"
	EventEveReceivedEncrypted = "eve_received_encrypted"
)

// Events emitted by the relay server
const (
	EventKeySent             = "key_sent"
	EventKeyReconciled       = "key_reconciled"
	EventBobReceiveEncrypted = "bob_receive_encrypted"
	EventBobReceive          = "bob_receive"
	EventEveReceiveEncrypted = "eve_receive_encrypted"
	EventEveReceive          = "eve_receive"
)
