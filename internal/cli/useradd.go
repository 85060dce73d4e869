package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"bakaaro-pos/internal/auth"
	"bakaaro-pos/internal/models"
	"bakaaro-pos/internal/services"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

type userAddOptions struct {
	Username string
	Name     string
	Branch   string
	Role     string
}

func NewUserAddCommand(opts *RootOptions) *cobra.Command {
	uo := &userAddOptions{}

	cmd := &cobra.Command{
		Use:   "useradd",
		Short: "Create a user; the password is read from the terminal or stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			env, closeDB, err := opts.open()
			if err != nil {
				return err
			}
			defer closeDB()

			user, err := addUser(cmd.Context(), env, uo, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s in %s (id %s)\n", user.Role, user.Username, user.Branch, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&uo.Username, "username", "", "login name")
	cmd.Flags().StringVar(&uo.Name, "name", "", "display name")
	cmd.Flags().StringVar(&uo.Branch, "branch", "", "branch name")
	cmd.Flags().StringVar(&uo.Role, "role", string(models.RoleAdmin), "admin, staff or cashier")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("branch")

	return cmd
}

func addUser(ctx context.Context, env *environment, uo *userAddOptions, password string) (*models.User, error) {
	branches := services.NewBranchService(env.db, env.logger)
	exists, err := branches.Exists(ctx, uo.Branch)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Errorf("branch %q does not exist", uo.Branch)
	}

	staff := services.NewStaffService(env.db, auth.NewHasher(env.cfg), env.logger)
	// The CLI acts as an administrator of the target branch.
	operator := &models.User{Role: models.RoleAdmin, Branch: uo.Branch, Active: true}
	return staff.Create(ctx, operator, services.StaffInput{
		Username: uo.Username,
		Password: password,
		Name:     uo.Name,
		Role:     models.Role(uo.Role),
		Branch:   uo.Branch,
	})
}

// promptPassword reads without echo from a terminal, otherwise one line of in.
func promptPassword(in io.Reader, w io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(w, "Password: ")
		pw, err := readPassword(int(f.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return "", errors.Wrap(err, "read password")
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(err, "read password")
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	return password, nil
}
