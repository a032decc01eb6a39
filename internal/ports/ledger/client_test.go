package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/form3tech-oss/jwt-go"

	"cryptocrew/internal/domain"
)

var settlement = domain.Settlement{
	GameID: "game-42",
	Players: []domain.SettlementEntry{
		{ID: "p1", GCAwarded: 4000, Role: domain.RoleSaboteur, Outcome: domain.SaboteursWin},
		{ID: "p3", GCAwarded: 4000, Role: domain.RoleTraitor, Outcome: domain.SaboteursWin, BribeGold: 120},
	},
}

func TestSubmitPayoutPostsSignedSettlement(t *testing.T) {
	const secret = "ledger-secret"
	var got domain.Settlement
	calls := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if key := r.Header.Get("Idempotency-Key"); key != "game-42" {
			t.Errorf("Idempotency-Key = %q, want game-42", key)
		}
		claims, err := parseClaims(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "), secret)
		if err != nil {
			t.Errorf("parse token: %v", err)
		} else if claims["sub"] != "game-42" || claims["iss"] != tokenIssuer {
			t.Errorf("claims = %v", claims)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, secret, srv.Client())
	if err := c.SubmitPayout(context.Background(), settlement); err != nil {
		t.Fatalf("submit payout: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if got.GameID != settlement.GameID || len(got.Players) != 2 || got.Players[1].BribeGold != 120 {
		t.Fatalf("ledger received %+v", got)
	}
}

func TestSubmitPayoutTreatsConflictAsDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL, "s", srv.Client()).SubmitPayout(context.Background(), settlement); err != nil {
		t.Fatalf("conflict should be success, got %v", err)
	}
}

func TestSubmitPayoutReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "pool exceeds budget", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "s", srv.Client()).SubmitPayout(context.Background(), settlement)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if !strings.Contains(err.Error(), "pool exceeds budget") {
		t.Fatalf("error should carry the ledger message: %v", err)
	}
}

func TestSubmitPayoutRequiresConfig(t *testing.T) {
	if err := NewClient("", "s", nil).SubmitPayout(context.Background(), settlement); err == nil {
		t.Fatal("expected error for missing url")
	}
	if err := NewClient("http://ledger", "", nil).SubmitPayout(context.Background(), settlement); err == nil {
		t.Fatal("expected error for missing secret")
	}
}

func parseClaims(tokenString, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("token is invalid")
	}
	return claims, nil
}
