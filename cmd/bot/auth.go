package main

import (
	"github.com/kapu/baselink-bot/internal/config"
	"github.com/kapu/baselink-bot/internal/service/youtube"
	"github.com/spf13/cobra"
)

var youtubeAuthCmd = &cobra.Command{
	Use:   "youtube-auth",
	Short: "Authorize YouTube OAuth access and store the token",
	Long: `Run the installed-app OAuth flow once. Open the printed URL, approve
access and paste the code back. The token is written to YOUTUBE_TOKEN_FILE.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		yt := config.LoadYouTube()
		return youtube.Authorize(cmd.Context(), yt.CredentialsFile, yt.TokenFile, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}
