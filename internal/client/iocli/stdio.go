package iocli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Stdio IO поверх потоков процесса. Пароль читается без эха, если in
// является терминалом, иначе как обычная строка.
type Stdio struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
	prompt io.Writer
}

// NewStdio создает IO. Подсказки печатаются в prompt, чтобы не смешиваться
// с данными в out.
func NewStdio(in io.Reader, out, prompt io.Writer) IO {
	return &Stdio{
		in:     in,
		reader: bufio.NewReader(in),
		out:    out,
		prompt: prompt,
	}
}

func (s *Stdio) Println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	_, _ = fmt.Fprint(s.prompt, prompt)
	input, err := s.reader.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

func (s *Stdio) ReadPassword(prompt string) (string, error) {
	f, ok := s.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return s.ReadInput(prompt)
	}

	_, _ = fmt.Fprint(s.prompt, prompt)
	pwBytes, err := term.ReadPassword(int(f.Fd()))
	_, _ = fmt.Fprintln(s.prompt)
	if err != nil {
		return "", err
	}
	return string(pwBytes), nil
}
