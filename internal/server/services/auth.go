package services

import (
	"context"
	"crypto/ed25519"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/common"
	"github.com/dmitrijs2005/alarmlock/internal/dbx"
	"github.com/dmitrijs2005/alarmlock/internal/server/auth"
	"github.com/dmitrijs2005/alarmlock/internal/server/config"
	"github.com/dmitrijs2005/alarmlock/internal/server/repositories/repomanager"
)

// AuthService proves control of an owner identity with a challenge/response
// login and issues access tokens for it:
//   - Challenge: store a random single-use nonce for the owner
//   - Login: check the owner's Ed25519 signature over the nonce, consume it, mint a JWT
type AuthService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	challengeValidityDuration   time.Duration
	now                         func() time.Time
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *AuthService {
	return &AuthService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		challengeValidityDuration:   cfg.ChallengeValidityDuration,
		now:                         time.Now,
	}
}

// LoginMessage is the exact byte string an owner signs to answer nonce.
func LoginMessage(nonce string) []byte {
	return []byte(common.LoginMessagePrefix + nonce)
}

// Challenge issues a fresh nonce for owner.
func (s *AuthService) Challenge(ctx context.Context, owner address.Address) (string, error) {
	if owner.IsZero() {
		return "", common.ErrUnauthorized
	}

	nonce, err := common.MakeRandHexString(32)
	if err != nil {
		return "", common.ErrorInternal
	}

	if _, err := s.repomanager.Challenges(s.db).Create(ctx, owner, nonce, s.challengeValidityDuration); err != nil {
		return "", err
	}

	return nonce, nil
}

// Login verifies signature over the login message of nonce and, on success,
// returns an access token for owner. The nonce is consumed whether or not the
// signature checks out.
func (s *AuthService) Login(ctx context.Context, owner address.Address, nonce string, signature []byte) (string, error) {
	// verdict is decided inside the transaction but returned after it
	// commits, so a consumed nonce stays consumed.
	var verdict error

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Challenges(tx)

		c, err := repo.Find(ctx, nonce)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrUnauthorized
			}
			return err
		}
		if err := repo.Delete(ctx, nonce); err != nil {
			return err
		}

		switch {
		case c.Owner != owner:
			verdict = common.ErrUnauthorized
		case !c.ExpiresAt.After(s.now()):
			verdict = common.ErrChallengeExpired
		case len(signature) != ed25519.SignatureSize,
			!ed25519.Verify(owner.PublicKey(), LoginMessage(nonce), signature):
			verdict = common.ErrInvalidSignature
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if verdict != nil {
		return "", verdict
	}

	token, err := auth.GenerateToken(owner, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

// PurgeExpired drops challenges that can no longer be answered.
func (s *AuthService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repomanager.Challenges(s.db).DeleteExpired(ctx, s.now())
}
