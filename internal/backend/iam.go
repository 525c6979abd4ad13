package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
)

// signingService is the SigV4 service name of the GraphQL API.
const signingService = "appsync"

// IAMSigner signs requests with AWS credentials.
type IAMSigner struct {
	credentials aws.CredentialsProvider
	region      string
	signer      *v4.Signer
	now         func() time.Time
}

// NewIAMSigner creates a signer for region using creds.
func NewIAMSigner(creds aws.CredentialsProvider, region string) *IAMSigner {
	return &IAMSigner{
		credentials: aws.NewCredentialsCache(creds),
		region:      region,
		signer:      v4.NewSigner(),
		now:         time.Now,
	}
}

// LoadIAMSigner builds a signer from the default AWS credential chain.
func LoadIAMSigner(ctx context.Context, region string) (*IAMSigner, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewIAMSigner(cfg.Credentials, cfg.Region), nil
}

// Sign adds SigV4 headers for body to req.
func (s *IAMSigner) Sign(ctx context.Context, req *http.Request, body []byte) error {
	creds, err := s.credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve AWS credentials: %w", err)
	}

	sum := sha256.Sum256(body)
	if err := s.signer.SignHTTP(ctx, creds, req, hex.EncodeToString(sum[:]), signingService, s.region, s.now()); err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}
	return nil
}
