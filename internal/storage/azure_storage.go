package storage

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	apperrors "go-trustshield/internal/errors"
)

// AzureStorage resolves artifacts kept in Azure Blob Storage. References are either
// azblob://<container>/<blob> or https://<account>.blob.core.windows.net/<container>/<blob>.
type AzureStorage struct {
	account string
	client  *azblob.Client
}

func NewAzureStorage(accountName string, accountKey string) (*AzureStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}

	return &AzureStorage{account: accountName, client: client}, nil
}

// Owns reports whether ref points into this storage account
func (s *AzureStorage) Owns(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	if u.Scheme == "azblob" {
		return true
	}
	return strings.EqualFold(u.Hostname(), s.account+".blob.core.windows.net")
}

func (s *AzureStorage) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	containerName, blobName, err := splitBlobRef(ref)
	if err != nil {
		return nil, err
	}

	downloadResponse, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError("blob download failed", 0, err)
	}

	retryReader := downloadResponse.Body
	defer retryReader.Close()

	img, _, err := image.Decode(retryReader)
	if err != nil {
		return nil, apperrors.NewMalformedPayloadError("failed to decode blob image", err)
	}
	return img, nil
}

// splitBlobRef extracts container and blob names from a blob reference
func splitBlobRef(ref string) (string, string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", "", apperrors.NewValidationError("invalid blob URL", err)
	}

	var path string
	if u.Scheme == "azblob" {
		path = u.Host + u.Path
	} else {
		path = strings.TrimPrefix(u.Path, "/")
	}

	containerName, blobName, ok := strings.Cut(path, "/")
	if !ok || containerName == "" || blobName == "" {
		return "", "", apperrors.NewValidationError(fmt.Sprintf("blob reference %q needs container and blob name", ref), nil)
	}
	return containerName, blobName, nil
}
