package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/abhiramsakaray/twinpay-backend/internal/account"
	"github.com/abhiramsakaray/twinpay-backend/internal/config"
	"github.com/abhiramsakaray/twinpay-backend/internal/identity"
)

const (
	testMobile   = "+919900112233"
	testPassword = "s3cret-pass"
)

func setupAuthApp(t *testing.T) *fiber.App {
	t.Helper()

	ids := identity.NewService(account.NewMemoryRepository())
	if _, err := ids.Register(context.Background(), identity.RegisterInput{
		MobileNumber: testMobile,
		FullName:     "Asha Rao",
		Password:     testPassword,
		PIN:          "1234",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	cfg := config.Config{JWTSecret: "test-secret", AccessTokenTTL: time.Minute}
	handler := NewHandler(NewService(cfg, ids))

	app := fiber.New()
	app.Post("/login", handler.Login)
	app.Post("/token", handler.Token)
	return app
}

func TestLoginIssuesToken(t *testing.T) {
	app := setupAuthApp(t)

	body := `{"mobile_number": "` + testMobile + `", "password": "` + testPassword + `"}`
	req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
	}

	payload, _ := io.ReadAll(resp.Body)
	var token Token
	if err := json.Unmarshal(payload, &token); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if token.AccessToken == "" || token.TokenType != "bearer" {
		t.Fatalf("unexpected token payload: %+v", token)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	app := setupAuthApp(t)

	body := `{"mobile_number": "` + testMobile + `", "password": "wrong"}`
	req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected %d got %d", fiber.StatusUnauthorized, resp.StatusCode)
	}
}

func TestTokenEndpointAcceptsFormCredentials(t *testing.T) {
	app := setupAuthApp(t)

	form := "username=" + url.QueryEscape(testMobile) + "&password=" + url.QueryEscape(testPassword)
	req := httptest.NewRequest(fiber.MethodPost, "/token", strings.NewReader(form))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
	}

	payload, _ := io.ReadAll(resp.Body)
	var token Token
	if err := json.Unmarshal(payload, &token); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if token.AccessToken == "" || token.TokenType != "bearer" {
		t.Fatalf("unexpected token payload: %+v", token)
	}
}
