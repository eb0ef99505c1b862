package main

import (
	"os"

	"github.com/spf13/cobra"

	"photo-crop/api/internal/bridge"
	"photo-crop/api/internal/client"
	"photo-crop/api/internal/console"
	"photo-crop/api/internal/cropbox"
	"photo-crop/api/internal/logging"
	"photo-crop/api/internal/session"
)

type reviewOptions struct {
	orderID string
	apiURL  string
	launch  string
	userID  int64
	noHost  bool
}

func newReviewCmd() *cobra.Command {
	var o reviewOptions

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Run an interactive crop review session",
		Long: `Review walks through the order photos one by one. Type "help" for commands.

With --api-url and --order-id the photos are fetched from the API and the result is
posted to {api-url}/crop/save. Otherwise the result is printed as one JSON line, the
way the mini app hands it to the bot.`,
		Example: `  cropper review --api-url http://localhost:8080/api --order-id 42
  cropper review --launch "$(cropper launch --api-url http://localhost:8080/api --order-id 42)"
  cropper review   # demo photos`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.launch == "" {
				o.launch = os.Getenv("CROP_LAUNCH")
			}
			return runReview(cmd, o)
		},
	}

	cmd.Flags().StringVar(&o.orderID, "order-id", "", "order to review")
	cmd.Flags().StringVar(&o.apiURL, "api-url", os.Getenv("CROP_API_URL"), "API base, e.g. http://localhost:8080/api")
	cmd.Flags().StringVar(&o.launch, "launch", "", "base64 launch payload (env CROP_LAUNCH)")
	cmd.Flags().Int64Var(&o.userID, "user-id", 0, "user id to put into the result")
	cmd.Flags().BoolVar(&o.noHost, "no-host", false, "run without a host: nothing to send the result to unless the API is set")

	return cmd
}

func runReview(cmd *cobra.Command, o reviewOptions) error {
	out := cmd.OutOrStdout()
	view := console.NewView(out)
	loop := session.NewLoop()

	cfg := session.Config{
		OrderID: o.orderID,
		Loader:  client.NewImageLoader(),
		Widgets: cropbox.Factory{},
		View:    view,
		Loop:    loop,
		Logger:  logging.Logger,
	}
	if o.apiURL != "" {
		cfg.Source = client.New(o.apiURL)
	}
	if !o.noHost {
		cfg.Bridge = bridge.NewConsole(out, o.launch, o.userID)
	}

	r := &console.Runner{
		Ctrl: session.New(cfg),
		Loop: loop,
		View: view,
		In:   cmd.InOrStdin(),
		Out:  out,
	}
	return r.Run(cmd.Context())
}
