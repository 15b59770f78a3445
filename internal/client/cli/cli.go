// Package cli реализует команды dirctl.
package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	clientapi "github.com/iudanet/gophdir/internal/client/api"
	"github.com/iudanet/gophdir/internal/client/iocli"
)

// Переменные окружения dirctl
const (
	EnvPassword = "DIRCTL_PASSWORD"
	EnvUser     = "DIRCTL_USER"
)

// BuildInfo метаданные сборки
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// Options глобальные флаги
type Options struct {
	DirURL   string
	UsersURL string
	User     string
	Password string
	Timeout  time.Duration
}

// Cli состояние одного запуска dirctl
type Cli struct {
	io    iocli.IO
	dir   *clientapi.DirectoryClient
	users *clientapi.UsersClient
	opts  Options
}

// NewRootCommand собирает дерево команд dirctl
func NewRootCommand(stdio iocli.IO, build BuildInfo) *cobra.Command {
	c := &Cli{io: stdio}

	root := &cobra.Command{
		Use:   "dirctl",
		Short: "Client of the replicated file directory",
		Long: `dirctl stores, shares and reads files through the directory service.

The password is taken from --password, then the ` + EnvPassword + ` environment
variable, then an interactive prompt.`,
		Version:           fmt.Sprintf("%s (built %s, commit %s)", build.Version, build.BuildDate, build.GitCommit),
		SilenceUsage:      true,
		PersistentPreRunE: c.connect,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.opts.DirURL, "dir", "http://localhost:8080", "directory replica URL")
	flags.StringVar(&c.opts.UsersURL, "users", "http://localhost:8090", "users service URL")
	flags.StringVarP(&c.opts.User, "user", "u", os.Getenv(EnvUser), "user id (env "+EnvUser+")")
	flags.StringVarP(&c.opts.Password, "password", "p", "", "password (not recommended, use env "+EnvPassword+")")
	flags.DurationVar(&c.opts.Timeout, "timeout", clientapi.DefaultTimeout, "request timeout")

	root.AddCommand(
		c.writeCommand(),
		c.getCommand(),
		c.rmCommand(),
		c.shareCommand(),
		c.unshareCommand(),
		c.lsCommand(),
		c.usersCommand(),
	)
	return root
}

// connect определяет пароль и создает клиентов
func (c *Cli) connect(cmd *cobra.Command, _ []string) error {
	if c.opts.User == "" {
		return fmt.Errorf("user is required: pass --user or set %s", EnvUser)
	}

	password, err := c.resolvePassword()
	if err != nil {
		return err
	}
	c.opts.Password = password

	c.dir = clientapi.NewDirectoryClient(c.opts.DirURL, c.opts.User, password)
	c.users = clientapi.NewUsersClient(c.opts.UsersURL, c.opts.Timeout, 0)
	return nil
}

// resolvePassword приоритет: флаг, переменная окружения, запрос в терминале
func (c *Cli) resolvePassword() (string, error) {
	if c.opts.Password != "" {
		return c.opts.Password, nil
	}
	if env := os.Getenv(EnvPassword); env != "" {
		return env, nil
	}

	password, err := c.io.ReadPassword(fmt.Sprintf("Password for %s: ", c.opts.User))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}

// splitTarget разбирает "owner/filename"; без владельца файл свой
func (c *Cli) splitTarget(arg string) (owner, filename string) {
	if o, f, ok := strings.Cut(arg, "/"); ok && o != "" && f != "" {
		return o, f
	}
	return c.opts.User, arg
}

func (c *Cli) printVersion() {
	c.io.Printf("version: %s\n", c.dir.LastVersion())
}
