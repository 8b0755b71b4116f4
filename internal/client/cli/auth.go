package cli

import (
	"context"
	"os"

	"github.com/dmitrijs2005/libcirc/internal/client/client"
	"github.com/dmitrijs2005/libcirc/internal/protocol"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *App) readCredentials() (*credentials, error) {
	username, err := GetSimpleText(a.reader, "Enter user name", os.Stdout)
	if err != nil {
		printlnFn(err.Error())
		return nil, err
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		printlnFn(err.Error())
		return nil, err
	}
	return &credentials{Username: username, Password: string(password)}, nil
}

func (a *App) Register(ctx context.Context) error {
	creds, err := a.readCredentials()
	if err != nil {
		return err
	}
	a.call(ctx, protocol.ActionRegister, creds)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	creds, err := a.readCredentials()
	if err != nil {
		return err
	}

	resp := a.call(ctx, protocol.ActionLogin, creds)
	if resp == nil {
		return nil
	}

	var data struct {
		SessionID string `json:"sessionId"`
		Session   struct {
			ID string `json:"id"`
		} `json:"session"`
		User struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	if err := client.DecodeData(resp, &data); err != nil {
		printlnFn("error:", err.Error())
		return err
	}

	a.api.SetSession(data.SessionID)
	a.setIdentity(data.User.Username, data.User.Role == "ADMIN", data.Session.ID)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.call(ctx, protocol.ActionLogout, nil)
	a.clearIdentity()
	return nil
}
