package storage

import (
	"context"
	"fmt"

	"jubily/internal/adapters/storage/gdrive"
	"jubily/internal/adapters/storage/localfs"
	"jubily/internal/util"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

func NewProvider(ctx context.Context) (Provider, error) {
	provider := util.Env("STORAGE_PROVIDER", "localfs")

	switch provider {
	case "localfs":
		root := util.MustEnv("STORAGE_LOCAL_ROOT")
		base := util.MustEnv("STORAGE_PUBLIC_BASE_URL")
		return localfs.New(root, base), nil

	case "gdrive":
		return newGDriveProvider(ctx)

	default:
		return nil, fmt.Errorf("unknown storage provider: %s", provider)
	}
}

func newGDriveProvider(ctx context.Context) (Provider, error) {
	clientID := util.MustEnv("GDRIVE_CLIENT_ID")
	clientSecret := util.MustEnv("GDRIVE_CLIENT_SECRET")
	refreshToken := util.MustEnv("GDRIVE_REFRESH_TOKEN")
	folderID := util.Env("GDRIVE_FOLDER_ID", "")

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}

	tok := &oauth2.Token{RefreshToken: refreshToken}
	httpClient := conf.Client(ctx, tok)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	return gdrive.NewClient(srv, folderID), nil
}
