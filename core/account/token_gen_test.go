package account

import (
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	tg := tokenGenerator{secretKey: []byte("secret"), timeout: 3 * 24 * time.Hour}

	now := time.Now()
	acc := Account{
		ID:        "5b0c8e2c-1f0b-4bde-9ad5-7a1bbd2a1f3e",
		Email:     "t@test.test",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = acc.SetPassword("pwd")

	validToken := tg.makeToken(acc)

	// generate an expired token
	dayLate := tg.timeout + (24 * time.Hour)
	nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken := tg.makeToken(acc)
	nowFunc = time.Now // reset

	// a new login invalidates previous tokens
	loggedIn := acc
	loggedIn.LastLogin = now.Add(time.Minute)

	tests := []struct {
		name    string
		acc     Account
		token   string
		wantErr error
	}{
		{name: "no token", acc: acc, wantErr: errInvalidToken},
		{name: "invalid parts len", acc: acc, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", acc: acc, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", acc: acc, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", acc: acc, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", acc: acc, token: expiredToken, wantErr: errTokenExpired},
		{name: "used after login", acc: loggedIn, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", acc: acc, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tg.verifyToken(tt.acc, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	acc := Account{ID: "5b0c8e2c-1f0b-4bde-9ad5-7a1bbd2a1f3e"}
	id, err := decodeUID(encodeUID(acc))
	if err != nil {
		t.Fatalf("decodeUID() error = %v", err)
	}
	if id != acc.ID {
		t.Errorf("decodeUID() = %q; want %q", id, acc.ID)
	}
	if _, err = decodeUID("!!"); err == nil {
		t.Error("decodeUID() expected an error on invalid input")
	}
}
