package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-healthcare-frontdesk/internal/domain"
	"go-healthcare-frontdesk/pkg/formclient"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var kindPaths = map[domain.SubmissionKind]string{
	domain.SubmissionAppointment: "/appointments",
	domain.SubmissionApplication: "/careers/applications",
	domain.SubmissionHelpline:    "/compliance/reports",
}

// submissionFile is the --from-file format
type submissionFile struct {
	formclient.Fields `yaml:",inline"`
	Attach            string `yaml:"attach"`
}

type submitOptions struct {
	endpoint string
	fromFile string
	attach   string
	timeout  time.Duration
	fields   formclient.Fields
}

func newRootCmd() *cobra.Command {
	opts := &submitOptions{}

	cmd := &cobra.Command{
		Use:   "submit <appointment|application|helpline>",
		Short: "Send a website form submission to the front desk API",
		Long: `Builds the same multipart request the website forms send and posts it once.
Fields can come from flags or from a YAML file; flags override the file.`,
		Args:          cobra.ExactArgs(1),
		ValidArgs:     []string{"appointment", "application", "helpline"},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, args[0], opts, http.DefaultClient)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.endpoint, "endpoint", "http://localhost:8080/v1", "API base URL")
	f.StringVar(&opts.fields.Name, "name", "", "full name")
	f.StringVar(&opts.fields.Email, "email", "", "email address")
	f.StringVar(&opts.fields.Phone, "phone", "", "phone number")
	f.StringVar(&opts.fields.Message, "message", "", "message text")
	f.StringVar(&opts.attach, "attach", "", "file to attach")
	f.StringVar(&opts.fromFile, "from-file", "", "YAML file with name, email, phone, message and attach")
	f.DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")

	return cmd
}

func runSubmit(cmd *cobra.Command, kindArg string, opts *submitOptions, client formclient.Doer) error {
	kind, err := domain.ParseSubmissionKind(kindArg)
	if err != nil {
		return err
	}

	fields, attach, err := opts.resolve(cmd)
	if err != nil {
		return err
	}

	form := formclient.New(strings.TrimRight(opts.endpoint, "/")+kindPaths[kind], client)
	form.Fields = fields
	if attach != "" {
		data, err := os.ReadFile(attach)
		if err != nil {
			return fmt.Errorf("read attachment: %w", err)
		}
		form.Attachment = &formclient.Attachment{Filename: filepath.Base(attach), Data: data}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	submitErr := form.Submit(ctx)
	if n, ok := form.Notification(); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", n.Kind, n.Text)
	}
	return submitErr
}

// resolve merges --from-file with explicitly set flags
func (o *submitOptions) resolve(cmd *cobra.Command) (formclient.Fields, string, error) {
	fields := formclient.Fields{}
	attach := ""

	if o.fromFile != "" {
		raw, err := os.ReadFile(o.fromFile)
		if err != nil {
			return fields, "", fmt.Errorf("read %s: %w", o.fromFile, err)
		}
		var file submissionFile
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return fields, "", fmt.Errorf("parse %s: %w", o.fromFile, err)
		}
		fields = file.Fields
		attach = file.Attach
		if attach != "" && !filepath.IsAbs(attach) {
			attach = filepath.Join(filepath.Dir(o.fromFile), attach)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		fields.Name = o.fields.Name
	}
	if flags.Changed("email") {
		fields.Email = o.fields.Email
	}
	if flags.Changed("phone") {
		fields.Phone = o.fields.Phone
	}
	if flags.Changed("message") {
		fields.Message = o.fields.Message
	}
	if flags.Changed("attach") {
		attach = o.attach
	}
	return fields, attach, nil
}
