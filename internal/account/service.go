package account

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/tablero/tablero/internal/session"
	"github.com/tablero/tablero/internal/shared"
	"github.com/tablero/tablero/internal/store"
	"github.com/tablero/tablero/jobs"
)

// DefaultSignupProfile is the profile assigned to self-registered users.
const DefaultSignupProfile int64 = 2

const resetCodeTTL = 15 * time.Minute

// errCodeInvalid covers unknown and expired codes alike: redis TTL expiry
// removes the key, so both present the same way.
var errCodeInvalid = errors.New("reset code invalid")

// Service implements public account flows: signup, password reset by emailed
// code, email change.
type Service struct {
	store  store.Querier
	redis  *redis.Client
	queue  *asynq.Client
	logger *slog.Logger
	mode   session.PasswordMode
}

// NewService constructs an account Service. queue may be nil in deployments
// without a worker; reset mails are then dropped with a log line.
func NewService(querier store.Querier, redisClient *redis.Client, queue *asynq.Client, logger *slog.Logger, mode session.PasswordMode) *Service {
	if mode == "" {
		mode = session.PasswordModeBcrypt
	}
	return &Service{store: querier, redis: redisClient, queue: queue, logger: logger, mode: mode}
}

// SignupParams carries the public registration payload.
type SignupParams struct {
	Name      string `json:"name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	BirthDate string `json:"birth_date" validate:"required"`
	Email     string `json:"email" validate:"required,email,max=50"`
	Password  string `json:"password" validate:"required,min=8"`
	NumberID  string `json:"number_id" validate:"required"`
}

// Signup creates the person and user rows and links the default profile.
func (s *Service) Signup(ctx context.Context, p SignupParams) error {
	personResult, err := s.store.ExecuteQuery(ctx, "public", "createPerson", p.Name, p.LastName, p.BirthDate)
	if err != nil || len(personResult.Rows) == 0 {
		return fmt.Errorf("create person: %w", shared.ErrStore)
	}
	personID := personResult.Rows[0].Int64("id_person")

	encoded, err := s.encodePassword(p.Password)
	if err != nil {
		return err
	}
	userResult, err := s.store.ExecuteQuery(ctx, "security", "createUser", p.Email, encoded, p.NumberID, personID)
	if err != nil || len(userResult.Rows) == 0 {
		return fmt.Errorf("create user: %w", shared.ErrStore)
	}
	userID := userResult.Rows[0].Int64("id_user")

	if _, err := s.store.ExecuteQuery(ctx, "security", "createUserProfile", userID, DefaultSignupProfile); err != nil {
		return fmt.Errorf("assign profile: %w", shared.ErrStore)
	}
	return nil
}

// RequestPasswordReset generates a six-digit code, stores it in redis with a
// TTL, and queues the notification mail. The code is keyed by itself so the
// confirm step does not need the email.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	userResult, err := s.store.ExecuteQuery(ctx, "security", "getUserByEmail", email)
	if err != nil {
		return err
	}
	if len(userResult.Rows) == 0 {
		return shared.ErrNotFound
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, resetKey(code), email, resetCodeTTL).Err(); err != nil {
		return err
	}

	s.enqueueMail(ctx, email, "Código para restablecer contraseña",
		"Tu código de restablecimiento es: "+code)
	return nil
}

// ConfirmPasswordReset validates the code and updates the password.
func (s *Service) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	email, err := s.redis.Get(ctx, resetKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return errCodeInvalid
		}
		return err
	}

	// The code may outlive an email change; re-check the account still exists
	// under the recorded address.
	userResult, err := s.store.ExecuteQuery(ctx, "security", "getUserByEmail", email)
	if err != nil {
		return err
	}
	found := false
	for _, row := range userResult.Rows {
		if session.EmailsEqual(row.String("email"), email) {
			found = true
			break
		}
	}
	if !found {
		return errCodeInvalid
	}

	encoded, err := s.encodePassword(newPassword)
	if err != nil {
		return err
	}
	updateResult, err := s.store.ExecuteQuery(ctx, "security", "updatePassword", encoded, email)
	if err != nil || updateResult.RowsAffected == 0 {
		return fmt.Errorf("update password: %w", shared.ErrStore)
	}

	_ = s.redis.Del(ctx, resetKey(code)).Err()
	return nil
}

// ChangeEmail verifies the current credentials by national id and swaps the
// address. The password check runs in Go against the stored value, never as a
// SQL equality, so it honors the configured password mode.
func (s *Service) ChangeEmail(ctx context.Context, numberID, password, newEmail string) error {
	checkResult, err := s.store.ExecuteQuery(ctx, "security", "getUserByNumberId", numberID)
	if err != nil {
		return err
	}
	if len(checkResult.Rows) == 0 {
		return shared.ErrInvalidCredentials
	}
	if !session.VerifyPassword(s.mode, checkResult.Rows[0].String("password"), password) {
		return shared.ErrInvalidCredentials
	}

	updateResult, err := s.store.ExecuteQuery(ctx, "security", "updateUserEmail", newEmail, numberID)
	if err != nil || updateResult.RowsAffected == 0 {
		return fmt.Errorf("update email: %w", shared.ErrStore)
	}
	return nil
}

func (s *Service) encodePassword(plain string) (string, error) {
	return session.EncodePassword(s.mode, plain)
}

func (s *Service) enqueueMail(ctx context.Context, to, subject, body string) {
	if s.queue == nil {
		s.logger.Warn("mail queue not configured, dropping mail", slog.String("to", to))
		return
	}
	payload, err := json.Marshal(jobs.SendEmailPayload{To: to, Subject: subject, Body: body})
	if err != nil {
		s.logger.Warn("mail marshal", slog.Any("error", err))
		return
	}
	if _, err := s.queue.EnqueueContext(ctx, asynq.NewTask(jobs.TaskTypeSendEmail, payload)); err != nil {
		s.logger.Warn("mail enqueue", slog.Any("error", err))
	}
}

func resetKey(code string) string {
	return "reset:code:" + code
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
