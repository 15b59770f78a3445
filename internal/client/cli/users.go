package cli

import (
	"github.com/spf13/cobra"

	"github.com/iudanet/gophdir/internal/validation"
	"github.com/iudanet/gophdir/pkg/api"
)

func (c *Cli) usersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts in the users service",
	}
	cmd.AddCommand(c.usersCreateCommand(), c.usersDeleteCommand(), c.usersSearchCommand())
	return cmd
}

func (c *Cli) usersCreateCommand() *cobra.Command {
	var fullName, email string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register --user with --password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateUserID(c.opts.User); err != nil {
				return err
			}
			if err := validation.ValidatePassword(c.opts.Password); err != nil {
				return err
			}

			var err error
			if fullName == "" {
				if fullName, err = c.io.ReadInput("Full name: "); err != nil {
					return err
				}
			}
			if email == "" {
				if email, err = c.io.ReadInput("Email: "); err != nil {
					return err
				}
			}

			user, err := c.users.Create(cmd.Context(), api.CreateUserRequest{
				ID:       c.opts.User,
				FullName: fullName,
				Email:    email,
				Password: c.opts.Password,
			})
			if err != nil {
				return err
			}
			c.io.Printf("user %s created\n", user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&fullName, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "email")
	return cmd
}

func (c *Cli) usersDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete --user; the directory then purges all of the user's files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.users.Delete(cmd.Context(), c.opts.User, c.opts.Password); err != nil {
				return err
			}
			c.io.Printf("user %s deleted\n", c.opts.User)
			return nil
		},
	}
}

func (c *Cli) usersSearchCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Find users by id, name or email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := c.users.Search(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(users) == 0 {
				c.io.Println("No users found.")
				return nil
			}
			for _, u := range users {
				c.io.Printf("%-20s %-30s %s\n", u.ID, u.FullName, u.Email)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results")
	return cmd
}
