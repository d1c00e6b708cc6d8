package main

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// addUser updates or creates an active user.User with the given role.
func (cli *commandLine) addUser(email, name, role, pwd string) error {
	now := time.Now().UTC()
	usr := user.User{
		FullName:  core.CleanString(name),
		Email:     core.CleanString(email, true /* lower */),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateOrCreateUser(context.Background(), usr); err != nil {
		return err
	}
	return nil
}
