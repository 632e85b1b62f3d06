package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/bestflix/backend/internal/auth"
	"github.com/bestflix/backend/internal/config"
)

// passwordReader reads a password without echo when input is a terminal.
type passwordReader func(prompt string) (string, error)

func runUserAdd(ctx context.Context, args []string, in *os.File, out io.Writer) error {
	if len(args) != 2 {
		return errors.New("usage: useradd <username> <email>")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	repos, err := openRepositories(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer repos.close()

	codec := auth.NewCodec([]byte(cfg.JWT.Secret), cfg.JWT.TTL)
	authenticator := auth.NewAuthenticator(repos.users, codec, auth.NewHasher(cfg.BcryptCost))

	return addUser(ctx, authenticator, args[0], args[1], terminalPasswordReader(in, out), out)
}

func addUser(ctx context.Context, authenticator *auth.Authenticator, username, email string, readPassword passwordReader, out io.Writer) error {
	password, err := readPassword("Password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("read password confirmation: %w", err)
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	user, err := authenticator.Register(ctx, auth.Registration{Username: username, Password: password, Email: email})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "created user %s (%s)\n", user.Username, user.ID)
	return nil
}

func terminalPasswordReader(in *os.File, out io.Writer) passwordReader {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		return func(prompt string) (string, error) {
			fmt.Fprint(out, prompt)
			raw, err := term.ReadPassword(fd)
			fmt.Fprintln(out)
			return string(raw), err
		}
	}

	scanner := bufio.NewScanner(in)
	return func(string) (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		return strings.TrimRight(scanner.Text(), "\r"), nil
	}
}
