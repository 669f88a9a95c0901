package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrIdentifierExists is returned by Identity.SignUp when the email already has an account.
var ErrIdentifierExists = errors.New("identifier already exists")

// Identity is the identity provider's email-code API.
type Identity interface {
	// SignUp registers email and sends it a verification code.
	SignUp(ctx context.Context, email string) error
	// SignIn sends a sign-in code to an existing account.
	SignIn(ctx context.Context, email string) error
	// VerifySignUp exchanges a sign-up code for a session token.
	VerifySignUp(ctx context.Context, email, code string) (string, error)
	// VerifySignIn exchanges a sign-in code for a session token.
	VerifySignIn(ctx context.Context, email, code string) (string, error)
}

// Outcome tags the state of a sign-in attempt.
type Outcome int

const (
	Failed Outcome = iota
	NeedsVerification
	Complete
)

func (o Outcome) String() string {
	switch o {
	case NeedsVerification:
		return "needs-verification"
	case Complete:
		return "complete"
	default:
		return "failed"
	}
}

// Result is returned by every Flow step.
type Result struct {
	Outcome Outcome
	// Token is set when Outcome is Complete.
	Token string
	// NewAccount is true when the flow created the identity, in which case the
	// backend account still has to be created.
	NewAccount bool
	Err        error
}

type flowMode int

const (
	modeNone flowMode = iota
	modeSignUp
	modeSignIn
)

// Flow runs email-code authentication without making callers choose between
// sign-up and sign-in: Start tries sign-up and falls back to sign-in.
type Flow struct {
	id    Identity
	email string
	mode  flowMode
}

// NewFlow creates a Flow over the given identity provider.
func NewFlow(id Identity) *Flow {
	return &Flow{id: id}
}

// Start sends a verification code to email.
func (f *Flow) Start(ctx context.Context, email string) Result {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return Result{Outcome: Failed, Err: fmt.Errorf("invalid email %q", email)}
	}
	f.email = email
	f.mode = modeNone

	err := f.id.SignUp(ctx, email)
	switch {
	case err == nil:
		f.mode = modeSignUp
	case errors.Is(err, ErrIdentifierExists):
		if err := f.id.SignIn(ctx, email); err != nil {
			return Result{Outcome: Failed, Err: fmt.Errorf("auth.Start: sign in: %w", err)}
		}
		f.mode = modeSignIn
	default:
		return Result{Outcome: Failed, Err: fmt.Errorf("auth.Start: sign up: %w", err)}
	}
	return Result{Outcome: NeedsVerification}
}

// Verify completes the flow started by Start.
func (f *Flow) Verify(ctx context.Context, code string) Result {
	code = strings.TrimSpace(code)
	if code == "" {
		return Result{Outcome: NeedsVerification, Err: errors.New("verification code is required")}
	}

	var (
		tok string
		err error
	)
	switch f.mode {
	case modeSignUp:
		tok, err = f.id.VerifySignUp(ctx, f.email, code)
	case modeSignIn:
		tok, err = f.id.VerifySignIn(ctx, f.email, code)
	default:
		return Result{Outcome: Failed, Err: errors.New("auth.Verify: no verification in progress")}
	}
	if err != nil {
		return Result{Outcome: Failed, Err: fmt.Errorf("auth.Verify: %w", err)}
	}
	return Result{Outcome: Complete, Token: tok, NewAccount: f.mode == modeSignUp}
}

// Email returns the address the flow was started with.
func (f *Flow) Email() string { return f.email }
