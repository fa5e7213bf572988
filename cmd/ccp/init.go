package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/loykin/ccp/internal/alias"
	"github.com/loykin/ccp/internal/config"
	"github.com/loykin/ccp/internal/settings"
	"github.com/loykin/ccp/internal/shellrc"
)

// suggested models per provider, offered when the settings have none.
var suggestedModels = map[string][2]string{
	alias.ProviderOpenAI: {config.DefaultBigModel, config.DefaultSmallModel},
	alias.ProviderGoogle: {"gemini-2.5-pro", "gemini-2.5-flash"},
}

// Init implements "ccp init". Empty answers keep the current value.
func (c *command) Init(ctx context.Context) error {
	store := settings.Discover(c.flags.Dir)
	current, err := store.Map()
	if err != nil {
		return err
	}
	p := newPrompter(c.in, c.out)
	c.printf("Settings file: %s\n", store.Path())

	for _, key := range []string{settings.KeyOpenAIAPIKey, settings.KeyGeminiAPIKey} {
		hint := "not set"
		if v := current[key]; v != "" {
			hint = settings.Mask(v)
		}
		v, err := p.secret(fmt.Sprintf("%s [%s]: ", key, hint))
		if err != nil {
			return err
		}
		if v != "" {
			if err := store.Set(key, v); err != nil {
				return err
			}
		}
	}

	provider, err := p.ask("Preferred provider (openai/google)", orDefault(current[settings.KeyPreferredProvider], config.DefaultProvider))
	if err != nil {
		return err
	}
	provider = strings.ToLower(provider)
	models, ok := suggestedModels[provider]
	if !ok {
		return fmt.Errorf("unknown provider %q: use openai or google", provider)
	}
	if err := store.Set(settings.KeyPreferredProvider, provider); err != nil {
		return err
	}
	// Previous models only carry over when the provider did not change.
	keep := provider == current[settings.KeyPreferredProvider]
	for i, key := range []string{settings.KeyBigModel, settings.KeySmallModel} {
		def := models[i]
		if keep && current[key] != "" {
			def = current[key]
		}
		v, err := p.ask(key, def)
		if err != nil {
			return err
		}
		if err := store.Set(key, v); err != nil {
			return err
		}
	}
	c.printf("Saved %s\n", store.Path())

	fc, err := c.loadConfig(c.flags.Dir)
	if err != nil {
		return err
	}
	ch := shellrc.FromEnv(exportLine(fc))
	r := ch.Check()
	c.reportShell(r)
	if r.Result != shellrc.Absent {
		return nil
	}
	yes, err := p.confirm(fmt.Sprintf("Add %q to %s?", ch.Line, r.Path), true)
	if err != nil {
		return err
	}
	if yes {
		c.installShell(ch)
	}
	return nil
}

// prompter reads answers line by line; secrets are read without echo when
// input is a terminal.
type prompter struct {
	r   *bufio.Reader
	out io.Writer
	fd  int
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{r: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
	}
	return p
}

func (p *prompter) line() (string, error) {
	s, err := p.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

func (p *prompter) ask(label, def string) (string, error) {
	_, _ = fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	v, err := p.line()
	if err != nil || v == "" {
		return def, err
	}
	return v, nil
}

func (p *prompter) secret(label string) (string, error) {
	_, _ = fmt.Fprint(p.out, label)
	if p.fd < 0 {
		return p.line()
	}
	b, err := term.ReadPassword(p.fd)
	_, _ = fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (p *prompter) confirm(label string, def bool) (bool, error) {
	choices := "y/N"
	if def {
		choices = "Y/n"
	}
	_, _ = fmt.Fprintf(p.out, "%s [%s]: ", label, choices)
	v, err := p.line()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(v) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
