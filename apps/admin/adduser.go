package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/sutdhousing/portal/core"
	"github.com/sutdhousing/portal/core/student"
	"github.com/sutdhousing/portal/core/user"
)

type addUserOptions struct {
	username  string
	email     string
	name      string
	password  string
	admin     bool
	write     bool
	isStudent bool
}

func (o addUserOptions) roles() []string {
	roles := make([]string, 0, 3)
	if o.isStudent {
		roles = append(roles, user.RoleStudent)
	}
	if o.admin {
		roles = append(roles, user.RoleAdmin)
	}
	if o.write {
		roles = append(roles, user.RoleAdminWrite)
	}
	return roles
}

// addUser updates or creates a user.User. New students also get their profile.
func (cli *commandLine) addUser(opts addUserOptions) error {
	ctx := context.Background()
	opts.username = core.CleanString(opts.username, true /* lower */)
	opts.email = core.CleanString(opts.email, true /* lower */)
	opts.name = core.CleanString(opts.name)
	if opts.name == "" {
		opts.name = opts.username
	}

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: opts.username})
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		return cli.createUser(ctx, opts)
	}

	usr.Roles = opts.roles()
	usr.IsActive = true
	usr.UpdatedAt = time.Now().UTC()
	if err := usr.SetPassword(opts.password); err != nil {
		return err
	}
	_, err = cli.usrRepo.UpdateUser(ctx, usr)
	return err
}

func (cli *commandLine) createUser(ctx context.Context, opts addUserOptions) error {
	if opts.isStudent {
		_, err := cli.studentSvc.Register(ctx, student.NewStudent{
			StudentID: opts.username,
			Password:  opts.password,
			FullName:  opts.name,
			EmailSUTD: opts.email,
		})
		if err != nil {
			return err
		}
		if !opts.admin {
			return nil
		}
		// student admins keep their profile and gain the admin roles
		usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: opts.username})
		if err != nil {
			return err
		}
		usr.Roles = opts.roles()
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
		return err
	}

	usr, err := user.NewUserFrom(user.NewUser{
		Name:     opts.name,
		Username: opts.username,
		Email:    opts.email,
		Password: opts.password,
		Roles:    opts.roles(),
	})
	if err != nil {
		return err
	}
	_, err = cli.usrRepo.CreateUser(ctx, usr)
	return err
}
