// Package s3 stores snapshot nodes as objects in an S3 bucket.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/hashicorp/golang-lru/simplelru"
)

// DefaultKnownNodes is the number of node names a Persist remembers as
// already present in the bucket.
const DefaultKnownNodes = 1000

type S3Interface interface {
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
}

// Persist implements the parchment.Persist interface for storing and
// loading snapshot nodes as objects. It is safe for concurrent use.
type Persist struct {
	s3         S3Interface
	BucketName string
	Prefix     string

	mu    sync.Mutex
	known *simplelru.LRU
}

// Load loads the bytes persisted in the named object.
func (p *Persist) Load(ctx context.Context, name string) ([]byte, error) {
	output, err := p.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: &p.BucketName,
		Key:    aws.String(p.Prefix + name),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	defer output.Body.Close()
	b, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	p.remember(name)
	return b, nil
}

// Store persists the given bytes in an object of the given name, unless
// the object is known to exist already.
func (p *Persist) Store(ctx context.Context, name string, b []byte) error {
	p.mu.Lock()
	_, present := p.known.Get(name)
	p.mu.Unlock()
	if present {
		return nil
	}
	_, err := p.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: &p.BucketName,
		Key:    aws.String(p.Prefix + name),
		Body:   bytes.NewReader(b),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	p.remember(name)
	return nil
}

func (p *Persist) remember(name string) {
	p.mu.Lock()
	p.known.Add(name, nil)
	p.mu.Unlock()
}

// NewPersist returns a Persist that loads and stores nodes as objects
// under prefix with the given S3 client and bucket name.
func NewPersist(client S3Interface, bucketName, prefix string) *Persist {
	known, err := simplelru.NewLRU(DefaultKnownNodes, nil)
	if err != nil {
		panic(err)
	}
	return &Persist{s3: client, BucketName: bucketName, Prefix: prefix, known: known}
}
