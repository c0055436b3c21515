package s3

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/stretchr/testify/assert"
)

func newTestClient(t *testing.T, cfg *aws.Config) *Client {
	t.Helper()
	sess, err := session.NewSession(cfg)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return &Client{s3Client: s3.New(sess), bucket: "campaign-images"}
}

func TestPublicURL_AWS(t *testing.T) {
	client := newTestClient(t, &aws.Config{Region: aws.String("sa-east-1")})

	url := client.PublicURL("campaigns/user-1/cover.png")

	assert.Equal(t, "https://campaign-images.s3.sa-east-1.amazonaws.com/campaigns/user-1/cover.png", url)
}

func TestPublicURL_MinIO(t *testing.T) {
	client := newTestClient(t, &aws.Config{
		Region:           aws.String("us-east-1"),
		Endpoint:         aws.String("http://localhost:9000"),
		S3ForcePathStyle: aws.Bool(true),
		DisableSSL:       aws.Bool(true),
	})

	url := client.PublicURL("proofs/123_abc.pdf")

	assert.Equal(t, "http://localhost:9000/campaign-images/proofs/123_abc.pdf", url)
}
