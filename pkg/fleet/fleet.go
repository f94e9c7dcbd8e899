// Package fleet finds the EC2 instances that should receive a deployment.
package fleet

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

const (
	// DefaultTagKey marks instances running the SSM agent.
	DefaultTagKey = "has_ssm_agent"

	pageSize = 1000
)

// tagValues are the values of the tag that opt an instance in.
var tagValues = []string{"true", "True"}

// Locator queries EC2 for running, tagged instances.
type Locator struct {
	client ec2.DescribeInstancesAPIClient
	tagKey string
	log    *log.Logger
}

// NewLocator creates a Locator. An empty tagKey uses DefaultTagKey and a nil
// logger uses log.Default().
func NewLocator(client ec2.DescribeInstancesAPIClient, tagKey string, logger *log.Logger) *Locator {
	if tagKey == "" {
		tagKey = DefaultTagKey
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Locator{client: client, tagKey: tagKey, log: logger}
}

// TagKey returns the tag the locator filters on.
func (l *Locator) TagKey() string {
	return l.tagKey
}

func (l *Locator) filters() []types.Filter {
	return []types.Filter{
		{Name: aws.String("tag:" + l.tagKey), Values: tagValues},
		{Name: aws.String("instance-state-name"), Values: []string{"running"}},
	}
}

// FindInstances returns the IDs of every running instance carrying the tag.
// A failed query is logged and yields an empty slice.
func (l *Locator) FindInstances(ctx context.Context) []string {
	ids, err := l.FindInstancesE(ctx)
	if err != nil {
		l.log.Printf("Failed to describe instances: %v", err)
		return []string{}
	}
	return ids
}

// FindInstancesE is FindInstances with the query error returned. Every page
// and every instance of every reservation is collected.
func (l *Locator) FindInstancesE(ctx context.Context) ([]string, error) {
	input := &ec2.DescribeInstancesInput{
		Filters:    l.filters(),
		MaxResults: aws.Int32(pageSize),
	}

	ids := []string{}
	paginator := ec2.NewDescribeInstancesPaginator(l.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe instances: %w", err)
		}
		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				if instance.InstanceId != nil {
					ids = append(ids, *instance.InstanceId)
				}
			}
		}
	}

	l.log.Printf("Found %d instance(s) tagged %s", len(ids), l.tagKey)
	return ids, nil
}

// IsTagged reports whether instanceID is running and carries the tag.
func (l *Locator) IsTagged(ctx context.Context, instanceID string) bool {
	out, err := l.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
		Filters:     l.filters(),
	})
	if err != nil {
		l.log.Printf("Failed to describe instance %s: %v", instanceID, err)
		return false
	}
	for _, reservation := range out.Reservations {
		for _, instance := range reservation.Instances {
			if instance.InstanceId != nil && *instance.InstanceId == instanceID {
				return true
			}
		}
	}
	return false
}
