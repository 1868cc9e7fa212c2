package main

import (
	"flag"
	"log/slog"
	"net/http"

	"heavenwatch-backend/lib/configutil"
	configlibsql "heavenwatch-backend/lib/configutil/libsql"
	"heavenwatch-backend/lib/serviceutil"
	"heavenwatch-backend/services/heaven"
	"heavenwatch-backend/services/keychain"
	keychaindb "heavenwatch-backend/services/keychain/db"

	"github.com/mazen160/go-random"
)

type Config struct {
	Port        int                 `json:"port"`
	AccessToken string              `json:"access_token"`
	PortalUrl   string              `json:"portal_url"`
	EncryptKey  string              `json:"encrypt_key"`
	Database    configlibsql.Struct `json:"database"`
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}

	database, err := cfg.Database.OpenDB(keychaindb.Schema)
	if err != nil {
		serviceutil.Fatal("open keychain database", err)
	}
	key, err := keychain.ParseKey(cfg.EncryptKey)
	if err != nil {
		serviceutil.Fatal("parse encryption key", err)
	}
	if cfg.EncryptKey == "" {
		slog.Warn("no encrypt_key configured, stored credentials will not survive a restart")
	}

	if cfg.AccessToken == "" {
		cfg.AccessToken, err = random.String(32)
		if err != nil {
			serviceutil.Fatal("generate access token", err)
		}
		slog.Info("generated api access token", "token", cfg.AccessToken)
	}

	service := heaven.NewService(
		keychain.NewService(database, key),
		heaven.Options{BaseUrl: cfg.PortalUrl},
	)

	mux := http.NewServeMux()
	heaven.RegisterHandlers(mux, service)

	handler := heaven.Cors(serviceutil.VerifyAccessToken(cfg.AccessToken, mux))
	go serviceutil.StartHttpServer(cfg.Port, handler)
	<-ctx.Done()
}
