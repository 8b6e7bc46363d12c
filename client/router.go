package client

import (
	"encoding/json"
	"fmt"
	"strconv"

	"qkd-demo/common"
)

// Element ids of the demo page
const (
	LogArea              = "logArea"
	AliceInput           = "aliceInput"
	BobReceivedEncrypted = "bobReceivedEncrypted"
	BobDecoded           = "bobDecoded"
	EveEavesdrop         = "eveEavesdrop"
	EveDecoded           = "eveDecoded"
	EncryptionModel      = "encryptionModel"
	Eavesdropping        = "eavesdropping"
)

// Page is the UI surface the router reads from and writes to.
// Every method is called from the UI goroutine.
type Page interface {
	// Value returns the current value of a control or field
	Value(id string) string
	// Checked returns the current state of a checkbox control
	Checked(id string) bool
	// SetValue overwrites the value of a field
	SetValue(id, value string)
	// AppendLog adds one line to the log area
	AppendLog(sender, content string)
}

// Emitter sends a named event with a single payload
type Emitter interface {
	Emit(name string, payload any) error
}

// HandlerFunc handles the raw payload of an inbound event
type HandlerFunc func(payload json.RawMessage) error

// Router turns page actions into outbound events and inbound events into page updates.
// It is not safe for concurrent use; all calls belong on the UI goroutine.
type Router struct {
	page     Page
	emitter  Emitter
	handlers map[string][]HandlerFunc
}

// NewRouter creates a Router with the demo page's inbound handlers registered
func NewRouter(page Page, emitter Emitter) *Router {
	r := &Router{
		page:     page,
		emitter:  emitter,
		handlers: make(map[string][]HandlerFunc),
	}
	r.registerHandlers()
	return r
}

// On registers a handler for an inbound event. Registering the same name twice
// keeps both handlers; they fire in registration order.
func (r *Router) On(name string, fn HandlerFunc) {
	r.handlers[name] = append(r.handlers[name], fn)
}

// Handlers returns the number of handlers registered for name
func (r *Router) Handlers(name string) int {
	return len(r.handlers[name])
}

// SendAliceKey asks the relay to generate and send a key
func (r *Router) SendAliceKey() {
	encryption, eavesdropping := r.encryption(), r.eavesdropping()
	r.page.AppendLog("Alice", "send Key: "+encryption+" - eavesdropping: "+strconv.FormatBool(eavesdropping))
	r.emit(common.EventAliceKey, common.KeyRequest{Encryption: encryption, Eavesdropping: eavesdropping})
}

// ReconcileKey asks the relay to reconcile Alice's and Bob's keys
func (r *Router) ReconcileKey() {
	encryption, eavesdropping := r.encryption(), r.eavesdropping()
	r.page.AppendLog("Alice + Bob", "Key reconciliation: "+encryption+" - eavesdropping: "+strconv.FormatBool(eavesdropping))
	r.emit(common.EventReconcileKey, common.KeyRequest{Encryption: encryption, Eavesdropping: eavesdropping})
}

// SendAliceMessage sends the text of the Alice input field
func (r *Router) SendAliceMessage() {
	message := r.page.Value(AliceInput)
	encryption, eavesdropping := r.encryption(), r.eavesdropping()
	r.page.AppendLog("Alice", "send Message: "+message+" - model: "+encryption+" - eavesdropping: "+strconv.FormatBool(eavesdropping))
	r.emit(common.EventAliceMessage, common.AliceMessage{
		Message:       message,
		Encryption:    encryption,
		Eavesdropping: eavesdropping,
	})
}

// DecodeBobMessage asks the relay to decode what Bob received
func (r *Router) DecodeBobMessage() {
	message := r.page.Value(BobReceivedEncrypted)
	r.page.AppendLog("Bob", "decode: "+message)
	r.emit(common.EventBobDecode, common.DecodeRequest{Message: message, Encryption: r.encryption()})
}

// DecodeEveMessage asks the relay to decode what Eve intercepted
func (r *Router) DecodeEveMessage() {
	message := r.page.Value(EveEavesdrop)
	r.page.AppendLog("Eve", "decode: "+message)
	r.emit(common.EventEveDecode, common.DecodeRequest{Message: message, Encryption: r.encryption()})
}

// Dispatch runs every handler registered for name. Unknown names are ignored.
// Handlers are independent: each one that rejects the payload is reported on
// its own and the rest still run.
func (r *Router) Dispatch(name string, payload json.RawMessage) {
	handlers, ok := r.handlers[name]
	if !ok {
		logger.Debugf("Ignoring unhandled event %s", name)
		return
	}
	for _, fn := range handlers {
		if err := fn(payload); err != nil {
			r.Drop(name, err)
		}
	}
}

// Drop reports an inbound event that could not be handled
func (r *Router) Drop(name string, err error) {
	logger.Warnf("Dropping event %s: %v", name, err)
	r.page.AppendLog("System", fmt.Sprintf("dropped %s: %v", name, err))
}

func (r *Router) registerHandlers() {
	r.On(common.EventKeyReconciled, func(payload json.RawMessage) error {
		status, err := common.DecodeKeyStatus(payload)
		if err != nil {
			return err
		}
		r.page.AppendLog("Alice", "sent key: "+status.Encryption+" - eavesdropping: "+common.FormatOptionalBool(status.Eavesdropping))
		return nil
	})

	// Registered twice under the same name, as the page does; both fire.
	r.On(common.EventKeyReconciled, func(payload json.RawMessage) error {
		var status common.KeyStatus
		if err := common.Decode(payload, &status); err != nil {
			return err
		}
		r.page.AppendLog("Alice", "reconciled key: "+common.FormatOptionalBool(status.Reconciled))
		return nil
	})

	r.On(common.EventBobReceiveEncrypted, r.receive("Bob", "received encrypted: ", BobReceivedEncrypted))
	r.On(common.EventBobReceive, r.receive("Bob", "received decoded: ", BobDecoded))

	r.On(common.EventEveReceiveEncrypted, func(payload json.RawMessage) error {
		if err := r.receive("Eve", "received encrypted: ", EveEavesdrop)(payload); err != nil {
			return err
		}
		r.emit(common.EventEveReceivedEncrypted, payload)
		return nil
	})

	r.On(common.EventEveReceive, r.receive("Eve", "received decoded: ", EveDecoded))
}

func (r *Router) receive(sender, prefix, field string) HandlerFunc {
	return func(payload json.RawMessage) error {
		notice, err := common.DecodeMessageNotice(payload)
		if err != nil {
			return err
		}
		r.page.AppendLog(sender, prefix+notice.Message)
		r.page.SetValue(field, notice.Message)
		return nil
	}
}

func (r *Router) emit(name string, payload any) {
	if err := r.emitter.Emit(name, payload); err != nil {
		logger.Warnf("Error emitting %s: %v", name, err)
		r.page.AppendLog("System", fmt.Sprintf("%s not sent: %v", name, err))
	}
}

func (r *Router) encryption() string {
	return r.page.Value(EncryptionModel)
}

func (r *Router) eavesdropping() bool {
	return r.page.Checked(Eavesdropping)
}
