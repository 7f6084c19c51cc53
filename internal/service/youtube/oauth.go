package youtube

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

// NewOAuthHTTPClient returns an auto-refreshing client built from the
// installed-app credentials and a token saved by Authorize.
func NewOAuthHTTPClient(ctx context.Context, credentialsFile, tokenFile string) (*http.Client, error) {
	oauthConfig, err := loadOAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}

	token, err := loadToken(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("no usable OAuth token in %s, run youtube-auth first: %w", tokenFile, err)
	}

	return oauthConfig.Client(ctx, token), nil
}

// Authorize runs the interactive consent flow: it prints the consent URL to
// out, reads the authorization code from in and stores the token.
func Authorize(ctx context.Context, credentialsFile, tokenFile string, in io.Reader, out io.Writer) error {
	oauthConfig, err := loadOAuthConfig(credentialsFile)
	if err != nil {
		return err
	}

	authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)

	fmt.Fprintln(out, "=== YouTube API Authorization ===")
	fmt.Fprintln(out, "Go to the following link in your browser:")
	fmt.Fprintln(out, authURL)
	fmt.Fprintln(out, "\nAfter authorization, enter the code here:")

	code, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("unable to read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("authorization code is empty")
	}

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("unable to retrieve token: %w", err)
	}

	if err := saveToken(tokenFile, token); err != nil {
		return fmt.Errorf("unable to save token: %w", err)
	}

	fmt.Fprintf(out, "Authorization successful, token saved to %s\n", tokenFile)
	return nil
}

func loadOAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	credBytes, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(credBytes, youtube.YoutubeReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}
	return oauthConfig, nil
}

func loadToken(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}

func saveToken(file string, token *oauth2.Token) error {
	f, err := os.OpenFile(file, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(token)
}
