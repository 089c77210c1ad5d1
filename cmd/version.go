package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// versionCheckTimeout bounds the best-effort admin-plane probe below.
const versionCheckTimeout = 2 * time.Second

// newVersionCmd creates the command that prints the CLI build version and,
// if a goblin gateway is reachable on the default admin endpoint, its
// uptime and session count.
func newVersionCmd() *cobra.Command {
	var adminAddr string
	c := &cobra.Command{
		Use:   "version",
		Short: "Print the goblin CLI version",
		Long:  `All software has versions. This prints goblin's, and the running gateway's status if reachable.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "goblin version %s\n", rootCmd.Version)

			st, err := fetchStatus(adminAddr)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nGateway: (not running at %s)\n", adminAddr)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nGateway: uptime=%s sessions=%d tools=%d\n", st.Uptime, st.SessionCount, st.ToolCount)
		},
	}
	c.Flags().StringVar(&adminAddr, "admin-addr", "http://localhost:8080", "admin HTTP plane address to probe")
	return c
}

type gatewayStatus struct {
	Uptime       string `json:"uptime"`
	SessionCount int    `json:"sessionCount"`
	ToolCount    int    `json:"toolCount"`
}

func fetchStatus(adminAddr string) (*gatewayStatus, error) {
	client := &http.Client{Timeout: versionCheckTimeout}
	resp, err := client.Get(adminAddr + "/status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("admin plane returned %d", resp.StatusCode)
	}
	var st gatewayStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, err
	}
	return &st, nil
}
