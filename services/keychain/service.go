package keychain

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"heavenwatch-backend/lib/timezone"
	"heavenwatch-backend/services/keychain/db"

	"github.com/fernet/fernet-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/keychain")

var ErrNotFound = errors.New("no credentials stored for this shop")

// Service stores portal credentials encrypted at rest. Secrets are
// sealed as fernet tokens so the database file alone is useless
// without the key.
type Service struct {
	db  *sql.DB
	qry *db.Queries
	key *fernet.Key
}

func NewService(database *sql.DB, key *fernet.Key) Service {
	return Service{
		db:  database,
		qry: db.New(database),
		key: key,
	}
}

// ParseKey decodes a base64 fernet key from config, or generates a
// fresh one when the config carries none.
func ParseKey(encoded string) (*fernet.Key, error) {
	if encoded == "" {
		key := &fernet.Key{}
		err := key.Generate()
		if err != nil {
			return nil, err
		}
		return key, nil
	}

	keys, err := fernet.DecodeKeys(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	return keys[0], nil
}

type Credentials struct {
	AccountId string
	Password  string
}

func (s Service) seal(plaintext string) (string, error) {
	token, err := fernet.EncryptAndSign([]byte(plaintext), s.key)
	if err != nil {
		return "", err
	}
	return string(token), nil
}

func (s Service) open(token string) (string, error) {
	// ttl 0: stored credentials do not expire
	plaintext := fernet.VerifyAndDecrypt([]byte(token), 0, []*fernet.Key{s.key})
	if plaintext == nil {
		return "", fmt.Errorf("stored credential token failed verification")
	}
	return string(plaintext), nil
}

func (s Service) SetCredentials(ctx context.Context, shopdir string, creds Credentials) error {
	ctx, span := tracer.Start(ctx, "SetCredentials")
	defer span.End()

	account, err := s.seal(creds.AccountId)
	if err != nil {
		span.SetStatus(codes.Error, "failed to encrypt account id")
		return err
	}
	password, err := s.seal(creds.Password)
	if err != nil {
		span.SetStatus(codes.Error, "failed to encrypt password")
		return err
	}

	err = s.qry.CreateCredential(ctx, db.CreateCredentialParams{
		Shopdir:   shopdir,
		AccountID: account,
		Password:  password,
		UpdatedAt: timezone.Now().Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to exec sql query")
		return err
	}
	return nil
}

func (s Service) GetCredentials(ctx context.Context, shopdir string) (Credentials, error) {
	ctx, span := tracer.Start(ctx, "GetCredentials")
	defer span.End()

	row, err := s.qry.GetCredential(ctx, shopdir)
	if err == sql.ErrNoRows {
		return Credentials{}, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to exec sql query")
		return Credentials{}, err
	}

	account, err := s.open(row.AccountID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Credentials{}, err
	}
	password, err := s.open(row.Password)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Credentials{}, err
	}

	return Credentials{AccountId: account, Password: password}, nil
}

func (s Service) HasCredentials(ctx context.Context, shopdir string) (bool, error) {
	_, err := s.qry.GetCredential(ctx, shopdir)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s Service) DeleteCredentials(ctx context.Context, shopdir string) error {
	return s.qry.DeleteCredential(ctx, shopdir)
}
