package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	outbound "github.com/vaultsandbox/outbound-go"
)

// messageFile is the YAML form of a message. Relative paths are resolved
// against the directory of the file.
type messageFile struct {
	ID              string        `yaml:"id"`
	From            string        `yaml:"from"`
	Format          string        `yaml:"format"`
	Body            string        `yaml:"body"`
	BodyFile        string        `yaml:"body_file"`
	Password        string        `yaml:"password"`
	PasswordHint    string        `yaml:"password_hint"`
	ExpiresIn       time.Duration `yaml:"expires_in"`
	AttachPublicKey bool          `yaml:"attach_public_key"`

	Recipients []struct {
		Address string `yaml:"address"`
		Role    string `yaml:"role"`
	} `yaml:"recipients"`

	Attachments []struct {
		ID        string `yaml:"id"`
		Filename  string `yaml:"filename"`
		MIMEType  string `yaml:"mime_type"`
		ContentID string `yaml:"content_id"`
		Path      string `yaml:"path"`
	} `yaml:"attachments"`
}

func loadMessage(fs afero.Fs, path string) (*outbound.Message, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}

	var mf messageFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse message %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	msg := &outbound.Message{
		ID:              mf.ID,
		From:            mf.From,
		Format:          mf.Format,
		Body:            mf.Body,
		Password:        mf.Password,
		PasswordHint:    mf.PasswordHint,
		ExpiresIn:       mf.ExpiresIn,
		AttachPublicKey: mf.AttachPublicKey,
	}

	if mf.BodyFile != "" {
		body, err := afero.ReadFile(fs, resolve(mf.BodyFile))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		msg.Body = string(body)
	}

	for _, r := range mf.Recipients {
		role, err := outbound.ParseRole(r.Role)
		if err != nil {
			return nil, err
		}
		msg.Recipients = append(msg.Recipients, outbound.Recipient{Address: r.Address, Role: role})
	}

	for _, a := range mf.Attachments {
		data, err := afero.ReadFile(fs, resolve(a.Path))
		if err != nil {
			return nil, fmt.Errorf("read attachment: %w", err)
		}
		name := a.Filename
		if name == "" {
			name = filepath.Base(a.Path)
		}
		msg.Attachments = append(msg.Attachments, outbound.Attachment{
			ID:        a.ID,
			Filename:  name,
			MIMEType:  a.MIMEType,
			ContentID: a.ContentID,
			Data:      data,
		})
	}

	return msg, nil
}
