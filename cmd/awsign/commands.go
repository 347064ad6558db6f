package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/amwolff/awsign"
)

type output struct {
	Method  string      `json:"method"`
	URL     string      `json:"url"`
	Header  http.Header `json:"header,omitempty"`
	Expires *time.Time  `json:"expires,omitempty"`
}

func (o output) write(w io.Writer, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(o)
	}

	if _, err := fmt.Fprintf(w, "%s %s\n", o.Method, o.URL); err != nil {
		return err
	}
	for _, name := range slices.Sorted(maps.Keys(o.Header)) {
		for _, v := range o.Header[name] {
			if _, err := fmt.Fprintf(w, "%s: %s\n", name, v); err != nil {
				return err
			}
		}
	}
	if o.Expires != nil {
		if _, err := fmt.Fprintf(w, "Expires: %s\n", o.Expires.Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return nil
}

func newSignCommand(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the request signed with an Authorization header.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, r, err := c.prepare()
			if err != nil {
				return err
			}
			signed, err := s.Sign(r, c.credentials())
			if err != nil {
				return err
			}
			return output{
				Method: signed.Method(),
				URL:    signed.URL().String(),
				Header: signed.Header(),
			}.write(cmd.OutOrStdout(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON.")

	return cmd
}

func newPresignCommand(c *cli) *cobra.Command {
	var (
		asJSON  bool
		expires time.Duration
	)

	cmd := &cobra.Command{
		Use:   "presign",
		Short: "Print a presigned URL for the request.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, r, err := c.prepare()
			if err != nil {
				return err
			}
			p, err := s.Presign(r, c.credentials(), expires)
			if err != nil {
				return err
			}
			return output{
				Method:  p.Method,
				URL:     p.URL.String(),
				Header:  p.Header,
				Expires: &p.Expires,
			}.write(cmd.OutOrStdout(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON.")
	cmd.Flags().DurationVar(&expires, "expires", 15*time.Minute, "Validity of the URL, at most 168h.")

	return cmd
}

func newCanonicalCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "canonical",
		Short: "Print the canonical form that would be signed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, r, err := c.prepare()
			if err != nil {
				return err
			}
			cf, err := s.Canonicalize(r, c.credentials())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cf.Request)
			return err
		},
	}
}

func newExecCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "exec",
		Short: "Sign and send the request, then print the response body.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, r, err := c.prepare()
			if err != nil {
				return err
			}
			signed, err := s.Sign(r, c.credentials())
			if err != nil {
				return err
			}

			resp, err := awsign.Execute(cmd.Context(), http.DefaultClient, signed)
			if err != nil {
				var pe *awsign.ProtocolError
				if errors.As(err, &pe) {
					_, _ = fmt.Fprint(cmd.ErrOrStderr(), awsign.FormatError(pe))
				}
				return err
			}

			_, err = cmd.OutOrStdout().Write(resp.Body)
			return err
		},
	}
}
