package server

import (
	"encoding/json"
	"fmt"
	"sync"

	"qkd-demo/common"
)

// session is the relay's view of the current exchange
type session struct {
	lock          sync.Mutex
	protocol      string
	eavesdropping bool
}

func (s *session) start(protocol string, eavesdropping bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.protocol = protocol
	s.eavesdropping = eavesdropping
}

func (s *session) setEavesdropping(eavesdropping bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.eavesdropping = eavesdropping
}

func (s *session) state() (string, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.protocol, s.eavesdropping
}

// check verifies that encryption matches the model the key was sent with
func (s *session) check(encryption string) error {
	protocol, _ := s.state()
	if protocol == "" {
		return fmt.Errorf("Invalid protocol %q - %w", encryption, ErrNoProtocol)
	}
	if encryption != protocol {
		return fmt.Errorf("Invalid protocol %q - expecting %s", encryption, protocol)
	}
	return nil
}

func (s *Server) handleEvent(name string, payload json.RawMessage) {
	var err error
	switch name {
	case common.EventAliceKey:
		err = s.handleAliceKey(payload)
	case common.EventReconcileKey:
		err = s.handleReconcileKey(payload)
	case common.EventAliceMessage:
		err = s.handleAliceMessage(payload)
	case common.EventBobDecode:
		err = s.handleBobDecode(payload)
	case common.EventEveDecode:
		err = s.handleEveDecode(payload)
	case common.EventEveReceivedEncrypted:
		err = s.handleEveAck(payload)
	default:
		s.logger.Warnf("Unexpected event %s", name)
		return
	}
	if err != nil {
		s.logger.Errorf("Error handling %s: %v", name, err)
	}
}

func (s *Server) handleAliceKey(payload json.RawMessage) error {
	var req common.KeyRequest
	if err := common.Decode(payload, &req, "encryption", "eavesdropping"); err != nil {
		return err
	}
	if _, err := CodecFor(req.Encryption); err != nil {
		s.logger.Warnf("Key sent with %v", err)
	}
	s.session.start(req.Encryption, req.Eavesdropping)
	s.resetJournal()
	if req.Eavesdropping {
		s.logger.Info("Eve is eavesdropping the key")
	} else {
		s.logger.Info("Eve isn't eavesdropping the key")
	}

	s.broadcast(common.EventKeySent, common.KeyStatus{
		Encryption:    req.Encryption,
		Eavesdropping: &req.Eavesdropping,
	})
	return nil
}

func (s *Server) handleReconcileKey(payload json.RawMessage) error {
	var req common.KeyRequest
	if err := common.Decode(payload, &req, "encryption", "eavesdropping"); err != nil {
		return err
	}
	reconciled := true
	s.logger.Infof("Key reconciled: %v", reconciled)

	s.broadcast(common.EventKeyReconciled, common.KeyStatus{
		Encryption:    req.Encryption,
		Eavesdropping: &req.Eavesdropping,
		Reconciled:    &reconciled,
	})
	return nil
}

func (s *Server) handleAliceMessage(payload json.RawMessage) error {
	var req common.AliceMessage
	if err := common.Decode(payload, &req, "message", "encryption"); err != nil {
		return err
	}
	s.session.setEavesdropping(req.Eavesdropping)

	encoded := s.encode(req.Message, req.Encryption)
	s.logger.Infof("Alice sent: %s", encoded)

	s.broadcast(common.EventEveReceiveEncrypted, common.MessageNotice{
		Message:    encoded,
		Encryption: req.Encryption,
		Sender:     "Alice",
	})
	s.broadcast(common.EventBobReceiveEncrypted, common.MessageNotice{
		Message:    encoded,
		Encryption: req.Encryption,
	})
	return nil
}

func (s *Server) handleBobDecode(payload json.RawMessage) error {
	var req common.DecodeRequest
	if err := common.Decode(payload, &req, "message", "encryption"); err != nil {
		return err
	}
	decoded := s.decode(req.Message, req.Encryption)
	s.logger.Infof("Bob decrypt message: %s", decoded)

	s.broadcast(common.EventBobReceive, common.MessageNotice{Message: decoded})
	return nil
}

func (s *Server) handleEveDecode(payload json.RawMessage) error {
	var req common.DecodeRequest
	if err := common.Decode(payload, &req, "message", "encryption"); err != nil {
		return err
	}
	_, eavesdropping := s.session.state()
	if req.Eavesdropping != nil {
		eavesdropping = *req.Eavesdropping
	}

	var message string
	if eavesdropping {
		message = s.decode(req.Message, req.Encryption)
		s.logger.Infof("Eve decrypt message: %s", message)
	} else {
		message = "Eavesdropping disabled"
		s.logger.Infof("Eve can't decrypt message: %s", message)
	}

	s.broadcast(common.EventEveReceive, common.MessageNotice{Message: message})
	return nil
}

func (s *Server) handleEveAck(payload json.RawMessage) error {
	notice, err := common.DecodeMessageNotice(payload)
	if err != nil {
		return err
	}
	s.logger.Infof("Eve acknowledged: %s", notice.Message)
	return nil
}

// encode returns the text shown to Bob and Eve, or the reason it could not be produced
func (s *Server) encode(message, encryption string) string {
	if err := s.session.check(encryption); err != nil {
		s.logger.Warnf("Invalid protocol %s", encryption)
		return err.Error()
	}
	codec, err := CodecFor(encryption)
	if err != nil {
		return err.Error()
	}
	return codec.Encode(message)
}

func (s *Server) decode(message, encryption string) string {
	if err := s.session.check(encryption); err != nil {
		s.logger.Warnf("Invalid protocol %s", encryption)
		return err.Error()
	}
	codec, err := CodecFor(encryption)
	if err != nil {
		return err.Error()
	}
	decoded, err := codec.Decode(message)
	if err != nil {
		return err.Error()
	}
	return decoded
}
