package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func (c *Cli) writeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "write FILENAME [LOCAL_PATH]",
		Short: "Store a file (reads stdin when LOCAL_PATH is omitted or '-')",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				payload []byte
				err     error
			)
			if len(args) == 2 && args[1] != "-" {
				payload, err = os.ReadFile(args[1])
			} else {
				payload, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read content: %w", err)
			}

			info, err := c.dir.Write(cmd.Context(), c.opts.User, args[0], payload)
			if err != nil {
				return err
			}
			c.io.Printf("stored %s/%s (%d bytes) at %s\n", info.Owner, info.Filename, len(payload), info.FileURL)
			c.printVersion()
			return nil
		},
	}
}

func (c *Cli) getCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get [OWNER/]FILENAME",
		Short: "Read a file owned by you or shared with you",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, filename := c.splitTarget(args[0])
			accUser := ""
			if owner != c.opts.User {
				accUser = c.opts.User
			}

			data, err := c.dir.Read(cmd.Context(), owner, filename, accUser)
			if err != nil {
				return err
			}

			if output != "" {
				if err := os.WriteFile(output, data, 0o600); err != nil {
					return fmt.Errorf("failed to save file: %w", err)
				}
				c.io.Printf("saved %d bytes to %s\n", len(data), output)
				return nil
			}
			_, err = c.io.Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "save to a local file instead of stdout")
	return cmd
}

func (c *Cli) rmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm FILENAME",
		Short: "Delete your file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.dir.Delete(cmd.Context(), c.opts.User, args[0]); err != nil {
				return err
			}
			c.io.Printf("deleted %s/%s\n", c.opts.User, args[0])
			c.printVersion()
			return nil
		},
	}
}

func (c *Cli) shareCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "share FILENAME USER",
		Short: "Allow USER to read your file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.dir.Share(cmd.Context(), c.opts.User, args[0], args[1]); err != nil {
				return err
			}
			c.io.Printf("shared %s/%s with %s\n", c.opts.User, args[0], args[1])
			c.printVersion()
			return nil
		},
	}
}

func (c *Cli) unshareCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unshare FILENAME USER",
		Short: "Revoke access of USER to your file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.dir.Unshare(cmd.Context(), c.opts.User, args[0], args[1]); err != nil {
				return err
			}
			c.io.Printf("unshared %s/%s from %s\n", c.opts.User, args[0], args[1])
			c.printVersion()
			return nil
		},
	}
}

func (c *Cli) lsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List files you own and files shared with you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := c.dir.List(cmd.Context(), c.opts.User)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				c.io.Println("No files found.")
				return nil
			}

			c.io.Printf("%-20s %-30s %s\n", "OWNER", "FILENAME", "SHARED WITH")
			for _, f := range files {
				shared := "-"
				if len(f.SharedWith) > 0 {
					shared = strings.Join(f.SharedWith, ",")
				}
				c.io.Printf("%-20s %-30s %s\n", f.Owner, f.Filename, shared)
			}
			return nil
		},
	}
}
