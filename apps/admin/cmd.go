package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/sutdhousing/portal/core/student"
	"github.com/sutdhousing/portal/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB
	usrRepo    user.Repository
	studentSvc student.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, down, status, redo, ...)")
	fmt.Println("  adduser -username USERNAME -email EMAIL [-name NAME] [-admin] [-write] [-student] - create or update a user")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Println("  sethg -student STUDENT_ID [-revoke] - grant or revoke the house guardian role")
}

func (cli *commandLine) readPassword(usage func()) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant read-only admin access.")
	addUserWrite := addUserCmd.Bool("write", false, "Grant admin write access (implies -admin).")
	addUserStudent := addUserCmd.Bool("student", false, "Register a student: the username is the student ID.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	setHGCmd := flag.NewFlagSet("sethg", flag.ExitOnError)
	setHGStudent := setHGCmd.String("student", "", "The student ID.")
	setHGRevoke := setHGCmd.Bool("revoke", false, "Revoke the house guardian role instead of granting it.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			fmt.Println("Usage: migrate COMMAND [ARGS]")
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword(addUserCmd.Usage)
		if err != nil {
			return err
		}
		return cli.addUser(addUserOptions{
			username:  *addUserUname,
			email:     *addUserEmail,
			name:      *addUserName,
			password:  pwd,
			admin:     *addUserAdmin || *addUserWrite,
			write:     *addUserWrite,
			isStudent: *addUserStudent,
		})
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword(resetPasswordCmd.Usage)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	case "sethg":
		if err := setHGCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setHGStudent == "" {
			setHGCmd.Usage()
			return errHelp
		}
		return cli.setHouseGuardian(*setHGStudent, !*setHGRevoke)
	default:
		cli.printUsage()
		return errHelp
	}
}
