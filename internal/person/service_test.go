package person

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/kudi-pay/kudi_pay/internal/ledger"
)

func TestRegisterCreatesWallet(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewInMemory()
	svc := NewService(NewMemoryRepository(store), NewStaticBlacklist(nil))

	p, err := svc.Register(ctx, RegisterInput{Phone: "+2348012345678", PIN: "1234"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword(p.PINHash, []byte("1234")); err != nil {
		t.Fatalf("stored hash does not match pin: %v", err)
	}

	// The wallet exists as soon as the person does.
	w, err := store.WalletByOwner(ctx, p.ID)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if !w.LedgerBalance.IsZero() || !w.Balance.IsZero() {
		t.Fatalf("expected zero balances, got ledger=%s settled=%s", w.LedgerBalance, w.Balance)
	}
	if w.Status != ledger.StatusActive || !w.IsActive {
		t.Fatalf("expected active wallet, got %+v", w)
	}
}

func TestRegisterRejectsBadPIN(t *testing.T) {
	svc := NewService(NewMemoryRepository(ledger.NewInMemory()), NewStaticBlacklist(nil))

	for _, pin := range []string{"", "12", "12a4", "1234567"} {
		if _, err := svc.Register(context.Background(), RegisterInput{Phone: "+234", PIN: pin}); !errors.Is(err, ErrInvalidPINFormat) {
			t.Fatalf("pin %q: expected format error, got %v", pin, err)
		}
	}
}

func TestRegisterBlacklistedPhone(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewInMemory()
	blacklist := NewStaticBlacklist([]string{"+2348000000001"})
	svc := NewService(NewMemoryRepository(store), blacklist)

	if _, err := svc.Register(ctx, RegisterInput{Phone: "+2348000000001", PIN: "1234"}); !errors.Is(err, ErrBlacklisted) {
		t.Fatalf("expected blacklist rejection, got %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Phone: "+2348000000002", PIN: "1234"}); err != nil {
		t.Fatalf("unlisted phone rejected: %v", err)
	}
}

func TestRegisterDuplicatePhone(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository(ledger.NewInMemory()), NewStaticBlacklist(nil))

	if _, err := svc.Register(ctx, RegisterInput{Phone: "+2348012345678", PIN: "1234"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Phone: "+2348012345678", PIN: "5678"}); !errors.Is(err, ErrExists) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}
