// internal/services/storage_service.go
package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/config"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/models"
)

// ContractDocumentStore locates rendered contract documents in S3. The
// renderer uploads the document; this service only derives where it lives
// and hands out time-limited links to it.
type ContractDocumentStore struct {
	s3Client *s3.S3
	config   config.AWSConfig
}

func NewContractDocumentStore(cfg config.AWSConfig) (*ContractDocumentStore, error) {
	if cfg.AccessKeyID == "" {
		// URLs can still be derived without credentials; presigning cannot.
		return &ContractDocumentStore{config: cfg}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &ContractDocumentStore{
		s3Client: s3.New(sess),
		config:   cfg,
	}, nil
}

// ContractKey is the object key the renderer writes a contract document to.
func (s *ContractDocumentStore) ContractKey(contract *models.Contract) string {
	key := fmt.Sprintf("%s/%s.pdf", contract.NegotiationID, contract.ID)
	if prefix := strings.Trim(s.config.ContractKeyPrefix, "/"); prefix != "" {
		return prefix + "/" + key
	}
	return key
}

func (s *ContractDocumentStore) ContractURL(contract *models.Contract) string {
	key := s.ContractKey(contract)
	if s.config.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(s.config.CloudFrontURL, "/"), key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		s.config.ContractsBucket, s.config.Region, key)
}

func (s *ContractDocumentStore) PresignContractURL(contract *models.Contract, expiration time.Duration) (string, error) {
	if s.s3Client == nil {
		return "", fmt.Errorf("%w: S3 client not configured", ErrDownstream)
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.ContractsBucket),
		Key:    aws.String(s.ContractKey(contract)),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("%w: failed to generate presigned URL: %v", ErrDownstream, err)
	}

	return url, nil
}
