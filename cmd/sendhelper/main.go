package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	outbound "github.com/vaultsandbox/outbound-go"
	"github.com/vaultsandbox/outbound-go/internal/config"
	"github.com/vaultsandbox/outbound-go/internal/crypto"
	"github.com/vaultsandbox/outbound-go/internal/keystore"
)

const usage = "usage: sendhelper <keygen|prepare|send> [flags]"

const commandTimeout = 60 * time.Second

var exitFunc = os.Exit

// Config holds the IO the commands use.
type Config struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Fs     afero.Fs
}

// DefaultConfig returns the process IO and the OS filesystem.
func DefaultConfig() Config {
	return Config{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Fs:     afero.NewOsFs(),
	}
}

func run(args []string, cfg Config) error {
	if len(args) < 2 {
		return errors.New(usage)
	}

	cmd := args[1]
	flags := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
	flags.SetOutput(cfg.Stderr)
	config.Flags(flags)

	switch cmd {
	case "keygen":
		address := flags.String("address", "", "sending address")
		keyID := flags.String("key-id", "", "signing key ID (generated when empty)")
		priority := flags.Int("priority", 0, "signing key priority, lower is preferred")
		conf, err := parse(flags, args[2:], cfg)
		if err != nil {
			return err
		}
		if *address == "" {
			return errors.New("usage: sendhelper keygen --address <address>")
		}
		return runKeygen(conf, *address, *keyID, *priority, cfg)

	case "prepare", "send":
		msgPath := flags.StringP("message", "m", "", "message file")
		yes := flags.BoolP("yes", "y", false, "exclude unresolved recipients without asking")
		conf, err := parse(flags, args[2:], cfg)
		if err != nil {
			return err
		}
		if *msgPath == "" {
			return fmt.Errorf("usage: sendhelper %s --message <file>", cmd)
		}

		msg, err := loadMessage(cfg.Fs, *msgPath)
		if err != nil {
			return err
		}
		sender, err := newSender(conf, cfg, *yes)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if cmd == "prepare" {
			return runPrepare(ctx, sender, msg, cfg)
		}
		return runSend(ctx, sender, msg, cfg)

	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func parse(flags *pflag.FlagSet, args []string, cfg Config) (*config.Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	return config.Load(cfg.Fs, flags)
}

func keyringConfig(conf *config.Config) keystore.Config {
	return keystore.Config{
		ServiceName:  conf.Keyring.Service,
		Backend:      conf.Keyring.Backend,
		FileDir:      conf.Keyring.FileDir,
		FilePassword: conf.Keyring.FilePassword,
	}
}

func newSender(conf *config.Config, cfg Config, yes bool) (*outbound.Sender, error) {
	opts := []outbound.Option{
		outbound.WithKeyring(keyringConfig(conf)),
		outbound.WithFs(cfg.Fs),
		outbound.WithAlgorithm(conf.Send.Algorithm),
		outbound.WithSignExternal(conf.Send.SignExternal),
		outbound.WithLookupTimeout(conf.Send.LookupTimeout),
		outbound.WithRetries(conf.Send.Retries),
		outbound.WithTimeout(conf.API.Timeout),
		outbound.WithKeyLookupRetries(conf.API.MaxRetries),
		outbound.WithLogger(cfg.Stderr, conf.Log.Level),
		outbound.WithConfirm(confirmFunc(cfg, yes)),
	}
	if conf.API.BaseURL != "" {
		opts = append(opts, outbound.WithBaseURL(conf.API.BaseURL))
	}
	if conf.Contacts != "" {
		opts = append(opts, outbound.WithContactBook(conf.Contacts))
	}
	return outbound.New(conf.API.Key, opts...)
}

// confirmFunc lists the unresolved recipients on stderr and asks on stdin
// whether to send without them, unless yes is set.
func confirmFunc(cfg Config, yes bool) outbound.ConfirmFunc {
	return func(ctx context.Context, failures map[string]error) bool {
		addrs := make([]string, 0, len(failures))
		for addr := range failures {
			addrs = append(addrs, addr)
		}
		sort.Strings(addrs)
		for _, addr := range addrs {
			fmt.Fprintf(cfg.Stderr, "cannot encrypt for %s: %v\n", addr, failures[addr])
		}
		if yes {
			return true
		}

		fmt.Fprint(cfg.Stderr, "Send without these recipients? [y/N] ")
		answer, _ := bufio.NewReader(cfg.Stdin).ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true
		}
		return false
	}
}

type keygenOutput struct {
	Address      string `json:"address"`
	SigningKeyID string `json:"signingKeyId"`
	PublicKey    string `json:"publicKey"`
}

func runKeygen(conf *config.Config, address, keyID string, priority int, cfg Config) error {
	store, err := keystore.Open(keyringConfig(conf))
	if err != nil {
		return err
	}

	kp, err := crypto.GenerateKeypair()
	if err != nil {
		return fmt.Errorf("generate keypair: %w", err)
	}
	if err := store.SetKeypair(address, kp); err != nil {
		return fmt.Errorf("store keypair: %w", err)
	}

	if keyID == "" {
		keyID = uuid.NewString()
	}
	sk, err := crypto.GenerateSigningKey(keyID)
	if err != nil {
		return fmt.Errorf("generate signing key: %w", err)
	}
	sk.Priority = priority
	if err := store.AddSigningKey(address, sk); err != nil {
		return fmt.Errorf("store signing key: %w", err)
	}

	out := keygenOutput{
		Address:      address,
		SigningKeyID: keyID,
		PublicKey:    crypto.ToBase64URL(kp.PublicKey),
	}
	if err := json.NewEncoder(cfg.Stdout).Encode(out); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func runPrepare(ctx context.Context, sender *outbound.Sender, msg *outbound.Message, cfg Config) error {
	prep, err := sender.Prepare(ctx, msg)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	for addr, reason := range prep.Excluded {
		fmt.Fprintf(cfg.Stderr, "excluded %s: %v\n", addr, reason)
	}

	data, err := prep.JSON()
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	_, err = fmt.Fprintln(cfg.Stdout, string(data))
	return err
}

type sendOutput struct {
	ID       string            `json:"id"`
	Sent     time.Time         `json:"sent"`
	Attempts int               `json:"attempts"`
	Packages int               `json:"packages"`
	Excluded map[string]string `json:"excluded,omitempty"`
}

func runSend(ctx context.Context, sender *outbound.Sender, msg *outbound.Message, cfg Config) error {
	res, err := sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	out := sendOutput{
		ID:       res.ID,
		Sent:     res.Sent,
		Attempts: res.Attempts,
		Packages: res.Packages,
	}
	if len(res.Excluded) > 0 {
		out.Excluded = make(map[string]string, len(res.Excluded))
		for addr, reason := range res.Excluded {
			out.Excluded[addr] = reason.Error()
		}
	}
	if err := json.NewEncoder(cfg.Stdout).Encode(out); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	exitFunc(1)
}
