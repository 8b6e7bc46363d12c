package configs

import "time"

var (
	AppName       = "qkd-demo"
	ServerAddress = "localhost:8080"
	RedisAddress  = "localhost:6379"
	WebSocketPath = "/ws"
	MetricsPath   = "/metrics"
	HealthPath    = "/healthz"

	// Redis keys

	ServerJournalKey = "server:journal:%s"

	// JournalLimit is the number of broadcast frames kept for replay
	JournalLimit int64 = 200

	WriteTimeout = 10 * time.Second
	ReadTimeout  = 2 * time.Minute

	// EncryptionModels are the choices offered by the encryptionModel control, in cycle order
	EncryptionModels = []string{
		ModelNone,
		ModelBB84,
		ModelEkert,
	}
)

const (
	ModelNone  = "No Protocol"
	ModelBB84  = "BB84 Protocol"
	ModelEkert = "Ekert Protocol"
)
