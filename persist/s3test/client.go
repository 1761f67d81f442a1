// Package s3test provides S3 clients for tests: an in-process gofakes3
// server by default, or a real endpoint given by PARCHMENT_TEST_S3_ENDPOINT.
package s3test

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"net/http/httptest"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
)

// Client returns an S3 client, the name of an empty bucket, and a function
// that empties the bucket and releases the client.
func Client() (*s3.S3, string, func()) {
	var client *s3.S3
	closer := func() {}
	if endpoint := os.Getenv("PARCHMENT_TEST_S3_ENDPOINT"); endpoint != "" {
		config := aws.Config{
			Credentials: credentials.NewStaticCredentials(
				getEnv("AWS_ACCESS_KEY_ID"),
				getEnv("AWS_SECRET_ACCESS_KEY"),
				getEnvOrDefault("AWS_SESSION_TOKEN", ""),
			),
			Endpoint:         aws.String(endpoint),
			S3ForcePathStyle: aws.Bool(true),
		}
		// A real AWS region lets the SDK pick the endpoint; other S3
		// implementations only need the region to be nonempty.
		config.Region = aws.String(getEnvOrDefault("AWS_REGION", "not-using-AWS"))
		if *config.Region != "not-using-AWS" {
			config.Endpoint = nil
		}
		sess, err := session.NewSession(&config)
		if err != nil {
			panic(err)
		}
		client = s3.New(sess)
	} else {
		faker := gofakes3.New(s3mem.New())
		ts := httptest.NewServer(faker.Server())
		closer = ts.Close
		sess, err := session.NewSession(&aws.Config{
			Credentials: credentials.NewStaticCredentials(
				"TEST-ACCESSKEYID",
				"TEST-SECRETACCESSKEY",
				"",
			),
			Endpoint:         aws.String(ts.URL),
			Region:           aws.String("ca-west-1"),
			DisableSSL:       aws.Bool(true),
			S3ForcePathStyle: aws.Bool(true),
		})
		if err != nil {
			panic(err)
		}
		client = s3.New(sess)
	}

	bucketName := os.Getenv("PARCHMENT_TEST_S3_BUCKET")
	created := bucketName == ""
	if created {
		bucketName = randBucketName()
		_, err := client.CreateBucket(&s3.CreateBucketInput{
			Bucket: &bucketName,
		})
		if err != nil {
			panic(err)
		}
	} else if err := emptyBucket(client, bucketName); err != nil {
		panic(err)
	}

	release := closer
	closer = func() {
		_ = emptyBucket(client, bucketName)
		if created {
			_, _ = client.DeleteBucket(&s3.DeleteBucketInput{
				Bucket: &bucketName,
			})
		}
		release()
	}
	return client, bucketName, closer
}

func getEnv(key string) string {
	res := os.Getenv(key)
	if res == "" {
		panic(fmt.Sprintf("environment '%s' unset", key))
	}
	return res
}

func getEnvOrDefault(key, def string) string {
	res := os.Getenv(key)
	if res == "" {
		return def
	}
	return res
}

func randBucketName() string {
	i, err := rand.Int(rand.Reader, big.NewInt(math.MaxUint32))
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("parchment-%s", i)
}

func emptyBucket(s *s3.S3, bucket string) error {
	params := &s3.ListObjectsInput{
		Bucket: &bucket,
	}
	for {
		objects, err := s.ListObjects(params)
		if err != nil {
			return err
		}
		if len(objects.Contents) == 0 {
			return nil
		}
		toDelete := make([]*s3.ObjectIdentifier, 0, len(objects.Contents))
		for _, object := range objects.Contents {
			toDelete = append(toDelete, &s3.ObjectIdentifier{Key: object.Key})
		}
		_, err = s.DeleteObjects(&s3.DeleteObjectsInput{
			Bucket: &bucket,
			Delete: &s3.Delete{Objects: toDelete},
		})
		if err != nil {
			return err
		}
		if !aws.BoolValue(objects.IsTruncated) {
			return nil
		}
		params.Marker = toDelete[len(toDelete)-1].Key
	}
}
