package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterRejectsBadInput(t *testing.T) {
	core, _, _ := newTestCore(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input RegistrationInput
	}{
		{"missing name", RegistrationInput{Role: RoleUser, Email: "a@b.com", Password: "secret1"}},
		{"bad email", RegistrationInput{Role: RoleUser, Name: "A", Email: "not-an-email", Password: "secret1"}},
		{"short password", RegistrationInput{Role: RoleUser, Name: "A", Email: "a@b.com", Password: "abc"}},
		{"seller without phone", RegistrationInput{Role: RoleSeller, Name: "A", Email: "a@b.com", Password: "secret1", Country: "DE"}},
		{"seller without country", RegistrationInput{Role: RoleSeller, Name: "A", Email: "a@b.com", Password: "secret1", Phone: "+491234"}},
		{"unknown role", RegistrationInput{Role: "admin", Name: "A", Email: "a@b.com", Password: "secret1"}},
	}

	for _, tc := range cases {
		if err := core.Credentials.Register(ctx, tc.input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	core, _, users := newTestCore(t)
	ctx := context.Background()

	if _, err := users.Create(ctx, CreateUserInput{
		Role: RoleUser, Name: "Alice", Email: "alice@example.com", PasswordHash: "x",
	}); err != nil {
		t.Fatalf("seeding user failed: %v", err)
	}

	err := core.Credentials.Register(ctx, RegistrationInput{
		Role: RoleUser, Name: "Alice", Email: "alice@example.com", Password: "secret1",
	})
	if !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestRegistrationFlow(t *testing.T) {
	core, mr, users := newTestCore(t)
	ctx := context.Background()

	input := RegistrationInput{
		Role:     RoleSeller,
		Name:     "Bob",
		Email:    "bob@example.com",
		Password: "secret1",
		Phone:    "+4912345",
		Country:  "DE",
	}
	if err := core.Credentials.Register(ctx, input); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// Phase one creates no account.
	if _, err := users.FindByEmail(ctx, "bob@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("account exists before finalization: %v", err)
	}

	code := storedCode(t, mr, "bob@example.com")
	record, tokens, err := core.Credentials.FinalizeRegistration(ctx, FinalizeInput{
		Role:     RoleSeller,
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
		OTP:      code,
		Phone:    input.Phone,
		Country:  input.Country,
	})
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if record.Role != RoleSeller || record.Email != "bob@example.com" {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.PasswordHash == input.Password {
		t.Fatal("password stored in clear text")
	}
	if tokens.Access == "" || tokens.Refresh == "" || tokens.Access == tokens.Refresh {
		t.Fatalf("bad token pair %+v", tokens)
	}

	// The consumed challenge cannot finalize a second account.
	_, _, err = core.Credentials.FinalizeRegistration(ctx, FinalizeInput{
		Role: RoleSeller, Name: input.Name, Email: input.Email,
		Password: input.Password, OTP: code, Phone: input.Phone, Country: input.Country,
	})
	if !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected not-found on replayed finalize, got %v", err)
	}
}

func TestFinalizeWrongCodeCreatesNothing(t *testing.T) {
	core, mr, users := newTestCore(t)
	ctx := context.Background()

	if err := core.Credentials.Register(ctx, RegistrationInput{
		Role: RoleUser, Name: "Carol", Email: "carol@example.com", Password: "secret1",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	bad := wrongCode(storedCode(t, mr, "carol@example.com"))
	_, _, err := core.Credentials.FinalizeRegistration(ctx, FinalizeInput{
		Role: RoleUser, Name: "Carol", Email: "carol@example.com", Password: "secret1", OTP: bad,
	})
	if !errors.Is(err, ErrIncorrectOTP) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if _, err := users.FindByEmail(ctx, "carol@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatal("account created despite wrong code")
	}
}

func TestLogin(t *testing.T) {
	core, mr, _ := newTestCore(t)
	ctx := context.Background()

	if err := core.Credentials.Register(ctx, RegistrationInput{
		Role: RoleUser, Name: "Dave", Email: "dave@example.com", Password: "secret1",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	code := storedCode(t, mr, "dave@example.com")
	if _, _, err := core.Credentials.FinalizeRegistration(ctx, FinalizeInput{
		Role: RoleUser, Name: "Dave", Email: "dave@example.com", Password: "secret1", OTP: code,
	}); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	record, tokens, err := core.Credentials.Login(ctx, "dave@example.com", "secret1", RoleUser)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if record.Email != "dave@example.com" || tokens.Access == "" {
		t.Fatalf("unexpected login result %+v", record)
	}

	if _, _, err := core.Credentials.Login(ctx, "dave@example.com", "wrong-pass", RoleUser); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected invalid credentials, got %v", err)
	}
	if _, _, err := core.Credentials.Login(ctx, "nobody@example.com", "secret1", RoleUser); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected invalid credentials, got %v", err)
	}
	// A user account cannot log in through the seller flow.
	if _, _, err := core.Credentials.Login(ctx, "dave@example.com", "secret1", RoleSeller); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("role mismatch: expected invalid credentials, got %v", err)
	}
}

func TestForgotPasswordFlow(t *testing.T) {
	core, mr, users := newTestCore(t)
	ctx := context.Background()

	if _, err := users.Create(ctx, CreateUserInput{
		Role: RoleUser, Name: "Erin", Email: "erin@example.com", PasswordHash: mustHash(t, core, "oldpass1"),
	}); err != nil {
		t.Fatalf("seeding user failed: %v", err)
	}

	// Unknown accounts are reported, not hidden.
	err := core.Credentials.InitiateForgotPassword(ctx, "ghost@example.com", RoleUser)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected not-found for unknown email, got %v", err)
	}

	if err := core.Credentials.InitiateForgotPassword(ctx, "erin@example.com", RoleUser); err != nil {
		t.Fatalf("forgot-password failed: %v", err)
	}

	code := storedCode(t, mr, "erin@example.com")
	if err := core.Credentials.VerifyPasswordResetOTP(ctx, "erin@example.com", code); err != nil {
		t.Fatalf("verify reset otp failed: %v", err)
	}

	if err := core.Credentials.ResetPassword(ctx, "erin@example.com", "oldpass1", RoleUser); !errors.Is(err, ErrPasswordReuse) {
		t.Fatalf("expected reuse rejection, got %v", err)
	}
	if err := core.Credentials.ResetPassword(ctx, "erin@example.com", "newpass1", RoleUser); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	if _, _, err := core.Credentials.Login(ctx, "erin@example.com", "newpass1", RoleUser); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
	if _, _, err := core.Credentials.Login(ctx, "erin@example.com", "oldpass1", RoleUser); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still accepted: %v", err)
	}
}

func TestForgotPasswordRoleScoped(t *testing.T) {
	core, _, users := newTestCore(t)
	ctx := context.Background()

	if _, err := users.Create(ctx, CreateUserInput{
		Role: RoleUser, Name: "Frank", Email: "frank@example.com", PasswordHash: "x",
	}); err != nil {
		t.Fatalf("seeding user failed: %v", err)
	}

	// A user account is invisible to the seller recovery flow.
	err := core.Credentials.InitiateForgotPassword(ctx, "frank@example.com", RoleSeller)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected not-found for role mismatch, got %v", err)
	}
}

func mustHash(t *testing.T, core *Core, plain string) string {
	t.Helper()
	hash, err := core.Credentials.hasher.Hash(plain)
	if err != nil {
		t.Fatalf("hashing %q: %v", plain, err)
	}
	return hash
}
