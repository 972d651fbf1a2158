// Command fleetctl is the scriptable operator CLI for the cloud node's
// REST API (§6): a thin HTTP client with one cobra subcommand per
// resource, JSON output by default so it composes with jq/grep. Grounded
// on the teacher's cmd/cli/main.go subcommand-tree shape, generalized
// from the teacher's single-binary REPL/serve/doctor split into a
// devices/commands/shadows/telemetry resource tree.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const (
	appName        = "fleetctl"
	defaultBaseURL = "http://localhost:8080"
)

func main() {
	var baseURL string

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Operator CLI for the fleet cloud node",
	}
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", defaultBaseURL, "cloud node base URL")

	rootCmd.AddCommand(
		newDevicesCmd(&baseURL),
		newCommandsCmd(&baseURL),
		newShadowsCmd(&baseURL),
		newTelemetryCmd(&baseURL),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// client is a minimal JSON REST client against the cloud node.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string) *client {
	return &client{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *client) do(method, path string, body interface{}) (map[string]interface{}, error) {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("fleetctl: encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("fleetctl: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fleetctl: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fleetctl: read response: %w", err)
	}

	var decoded map[string]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("fleetctl: decode response: %w", err)
		}
	}

	if resp.StatusCode >= 400 {
		return decoded, fmt.Errorf("fleetctl: %s %s: %s (status %d)", method, path, decoded["error"], resp.StatusCode)
	}
	return decoded, nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// ─── devices ───

func newDevicesCmd(baseURL *string) *cobra.Command {
	cmd := &cobra.Command{Use: "devices", Short: "Manage fleet devices"}

	var fleetID string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List devices, optionally filtered by fleet",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/devices"
			if fleetID != "" {
				path += "?fleet_id=" + fleetID
			}
			resp, err := newClient(*baseURL).do(http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			printJSON(resp)
			return nil
		},
	}
	listCmd.Flags().StringVar(&fleetID, "fleet", "", "filter by fleet ID")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "get [device_id]",
		Short: "Fetch one device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newClient(*baseURL).do(http.MethodGet, "/api/v1/devices/"+args[0], nil)
			if err != nil {
				return err
			}
			printJSON(resp)
			return nil
		},
	})

	var hardwareType, vin string
	provisionCmd := &cobra.Command{
		Use:   "provision [device_id] [fleet_id]",
		Short: "Provision a new device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newClient(*baseURL).do(http.MethodPost, "/api/v1/devices", map[string]string{
				"device_id":     args[0],
				"fleet_id":      args[1],
				"hardware_type": hardwareType,
				"vin":           vin,
			})
			if err != nil {
				return err
			}
			printJSON(resp)
			return nil
		},
	}
	provisionCmd.Flags().StringVar(&hardwareType, "hardware-type", "", "hardware platform identifier")
	provisionCmd.Flags().StringVar(&vin, "vin", "", "vehicle identification number")
	cmd.AddCommand(provisionCmd)

	return cmd
}

// ─── commands ───

func newCommandsCmd(baseURL *string) *cobra.Command {
	cmd := &cobra.Command{Use: "commands", Short: "Submit and inspect operator commands"}

	var initiatedBy string
	submitCmd := &cobra.Command{
		Use:   "submit [fleet_id] [device_id] [natural language command]",
		Short: "Submit a natural-language command to a device",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := args[2]
			for _, extra := range args[3:] {
				text += " " + extra
			}
			resp, err := newClient(*baseURL).do(http.MethodPost, "/api/v1/commands", map[string]string{
				"fleet_id":     args[0],
				"device_id":    args[1],
				"command":      text,
				"initiated_by": initiatedBy,
			})
			if err != nil {
				return err
			}
			printJSON(resp)
			return nil
		},
	}
	submitCmd.Flags().StringVar(&initiatedBy, "initiated-by", "operator", "operator identity recorded on the envelope")
	cmd.AddCommand(submitCmd)

	var deviceID string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List command envelopes, optionally filtered by device",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/commands"
			if deviceID != "" {
				path += "?device_id=" + deviceID
			}
			resp, err := newClient(*baseURL).do(http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			printJSON(resp)
			return nil
		},
	}
	listCmd.Flags().StringVar(&deviceID, "device", "", "filter by device ID")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "get [envelope_id]",
		Short: "Fetch one command envelope and its response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newClient(*baseURL).do(http.MethodGet, "/api/v1/commands/"+args[0], nil)
			if err != nil {
				return err
			}
			printJSON(resp)
			return nil
		},
	})

	return cmd
}

// ─── shadows ───

func newShadowsCmd(baseURL *string) *cobra.Command {
	cmd := &cobra.Command{Use: "shadows", Short: "Inspect and set device shadow state"}

	cmd.AddCommand(&cobra.Command{
		Use:   "names [device_id]",
		Short: "List a device's shadow names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newClient(*baseURL).do(http.MethodGet, "/api/v1/devices/"+args[0]+"/shadows", nil)
			if err != nil {
				return err
			}
			printJSON(resp)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get [device_id] [shadow_name]",
		Short: "Fetch a shadow's reported/desired state and pending delta",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newClient(*baseURL).do(http.MethodGet, "/api/v1/devices/"+args[0]+"/shadows/"+args[1], nil)
			if err != nil {
				return err
			}
			printJSON(resp)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [device_id] [shadow_name] [json]",
		Short: "Set desired shadow state from a JSON object literal",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var desired map[string]interface{}
			if err := json.Unmarshal([]byte(args[2]), &desired); err != nil {
				return fmt.Errorf("fleetctl: desired state must be a JSON object: %w", err)
			}
			path := "/api/v1/devices/" + args[0] + "/shadows/" + args[1] + "/desired"
			resp, err := newClient(*baseURL).do(http.MethodPut, path, map[string]interface{}{"desired": desired})
			if err != nil {
				return err
			}
			printJSON(resp)
			return nil
		},
	})

	return cmd
}

// ─── telemetry ───

func newTelemetryCmd(baseURL *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "telemetry [device_id]",
		Short: "List recent telemetry readings for a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/devices/%s/telemetry?limit=%d", args[0], limit)
			resp, err := newClient(*baseURL).do(http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			printJSON(resp)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum readings to return")
	return cmd
}
