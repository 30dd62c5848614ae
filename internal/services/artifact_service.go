// internal/services/artifact_service.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/firstscanit/fsi-backend/internal/config"
)

// ArtifactService archives issuance proof artifacts to S3. When AWS is not
// configured the service is a no-op and issuance proceeds without archiving.
type ArtifactService struct {
	s3Client *s3.S3
	config   *config.Config
}

// ProofArtifact is the renderable record a QR printer consumes: everything
// needed to produce and later audit one unit's code, minus any secret.
type ProofArtifact struct {
	UnitID     string    `json:"unit_id"`
	BatchID    string    `json:"batch_id"`
	Identifier string    `json:"identifier"`
	QRContent  string    `json:"qr_content"`
	IssuedAt   time.Time `json:"issued_at"`
}

func NewArtifactService(config *config.Config) (*ArtifactService, error) {
	if config.AWS.AccessKeyID == "" {
		// Archiving disabled for local development
		return &ArtifactService{config: config}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AWS.AccessKeyID,
			config.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &ArtifactService{
		s3Client: s3.New(sess),
		config:   config,
	}, nil
}

// Enabled reports whether artifacts are actually archived.
func (s *ArtifactService) Enabled() bool {
	return s.s3Client != nil
}

// Archive uploads one proof artifact and returns its URL, or "" when
// archiving is disabled.
func (s *ArtifactService) Archive(artifact *ProofArtifact) (string, error) {
	if !s.Enabled() {
		return "", nil
	}

	body, err := json.Marshal(artifact)
	if err != nil {
		return "", fmt.Errorf("failed to encode proof artifact: %w", err)
	}

	key := fmt.Sprintf("proofs/%s/%s.json", artifact.BatchID, artifact.UnitID)

	_, err = s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:        aws.String(s.config.AWS.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload proof artifact: %w", err)
	}

	if s.config.AWS.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", s.config.AWS.CloudFrontURL, key), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.config.AWS.S3Bucket, s.config.AWS.Region, key), nil
}
