package account

import (
	"context"
	"net/mail"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/council/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("account not found")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDeactivated        = errors.New("account deactivated")
)

type (
	GetFilter struct {
		ID    string
		Email string
	}

	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists if another account than the excluded ones uses email.
		CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error
		CreateAccount(ctx context.Context, acc Account) (Account, error)
		GetAccount(ctx context.Context, filter GetFilter) (Account, error)
		UpdateAccount(ctx context.Context, acc Account) (Account, error)
	}

	// Provisioner creates the application profile of a freshly signed up account.
	Provisioner interface {
		Provision(ctx context.Context, accountID, name string) error
	}

	Service interface {
		CheckUniqueness(email string, excluded ...Account) error
		SignUp(ctx context.Context, su SignUp) (Account, error)
		CreateAccount(ctx context.Context, email, pwd string) (Account, error)
		Authenticate(ctx context.Context, email, pwd string) (Account, error)
		GetByID(ctx context.Context, id string) (Account, error)
		GetByEmail(ctx context.Context, email string) (Account, error)
		SetPassword(ctx context.Context, email, pwd string) (Account, error)
		SetActive(ctx context.Context, id string, active bool) (Account, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetPassword) error
		// Wait blocks until all pending profile provisionings are done.
		Wait()
	}

	service struct {
		repo        Repository
		provisioner Provisioner
		mailSvc     core.EmailService
		logger      core.Logger
		tokenGen    tokenGenerator
		delay       time.Duration
		pending     sync.WaitGroup
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, provisioner Provisioner, mailSvc core.EmailService, logger core.Logger, conf *core.Config) Service {
	return &service{
		repo:        repo,
		provisioner: provisioner,
		mailSvc:     mailSvc,
		logger:      logger,
		tokenGen: tokenGenerator{
			secretKey: []byte(conf.SecretKey),
			timeout:   conf.Auth.PasswordResetTimeoutDelta,
		},
		delay: conf.Auth.ProvisionDelay,
	}
}

func (svc *service) CheckUniqueness(email string, excluded ...Account) error {
	ids := make([]string, 0, len(excluded))
	for _, acc := range excluded {
		ids = append(ids, acc.ID)
	}
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, ids...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

// SignUp creates the account and provisions its profile in the background,
// the way a database trigger would: the profile may not exist yet when SignUp returns.
func (svc *service) SignUp(ctx context.Context, su SignUp) (Account, error) {
	acc, err := svc.CreateAccount(ctx, su.Email, su.Password)
	if err != nil {
		return Account{}, err
	}

	svc.pending.Add(1)
	go func() {
		defer svc.pending.Done()
		if svc.delay > 0 {
			time.Sleep(svc.delay)
		}
		if err := svc.provisioner.Provision(context.Background(), acc.ID, su.Name); err != nil {
			svc.logger.Error("provisioning profile", errors.Wrap(err, acc.ID))
		}
	}()
	return acc, nil
}

func (svc *service) CreateAccount(ctx context.Context, email, pwd string) (Account, error) {
	now := time.Now().UTC()
	acc := Account{
		Email:     core.CleanString(email, true /* lower */),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := acc.SetPassword(pwd); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}
	acc, err := svc.repo.CreateAccount(ctx, acc)
	return acc, errors.Wrap(err, "creating account")
}

func (svc *service) Authenticate(ctx context.Context, email, pwd string) (Account, error) {
	acc, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, err
	}
	if err = acc.CheckPassword(pwd); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	if !acc.IsActive {
		return Account{}, ErrDeactivated
	}

	acc.LastLogin = time.Now().UTC()
	acc, err = svc.repo.UpdateAccount(ctx, acc)
	return acc, errors.Wrap(err, "setting last login")
}

func (svc *service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) SetPassword(ctx context.Context, email, pwd string) (Account, error) {
	acc, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return Account{}, err
	}
	if err = acc.SetPassword(pwd); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}
	acc.UpdatedAt = time.Now().UTC()
	acc, err = svc.repo.UpdateAccount(ctx, acc)
	return acc, errors.Wrap(err, "updating password")
}

func (svc *service) SetActive(ctx context.Context, id string, active bool) (Account, error) {
	acc, err := svc.GetByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	acc.IsActive = active
	acc.UpdatedAt = time.Now().UTC()
	acc, err = svc.repo.UpdateAccount(ctx, acc)
	return acc, errors.Wrap(err, "updating account")
}

// RequestPasswordReset mails a reset link to the account owner, if the account exists and is active.
func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	acc, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !acc.IsActive {
		return ErrNotFound
	}
	svc.sendPasswordResetMail(acc)
	return nil
}

func (svc *service) sendPasswordResetMail(acc Account) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: acc.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":  acc.Email,
			"UID":   encodeUID(acc),
			"Token": svc.tokenGen.makeToken(acc),
		},
	})
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetPassword) error {
	invalidErr := core.NewValidationError(errors.New("invalid token"))

	id, err := decodeUID(rp.UID)
	if err != nil {
		return invalidErr
	}
	acc, err := svc.GetByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return invalidErr
		}
		return err
	}
	if err = svc.tokenGen.verifyToken(acc, rp.Token); err != nil {
		return core.NewValidationError(err)
	}

	if err = acc.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	acc.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateAccount(ctx, acc)
	return errors.Wrap(err, "updating password")
}

func (svc *service) Wait() {
	svc.pending.Wait()
}
