package workers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yoockh/buildmate/internal/models"
	"github.com/yoockh/buildmate/internal/utils"
)

const (
	DefaultGenerationStream = "ideas:generate"
	DefaultJobTTL           = time.Hour
)

func JobStatusChannel(jobID string) string { return "job:" + jobID + ":status" }
func jobOwnerKey(jobID string) string      { return "job:" + jobID + ":owner" }
func jobLastKey(jobID string) string       { return "job:" + jobID + ":last" }

// JobQueue enqueues generation jobs on a Redis stream and fans their status out over pub/sub.
// The last status of each job is also kept so late subscribers can catch up.
type JobQueue struct {
	Redis  *redis.Client
	Stream string
	TTL    time.Duration
}

func NewJobQueue(rdb *redis.Client) *JobQueue {
	return &JobQueue{Redis: rdb, Stream: DefaultGenerationStream, TTL: DefaultJobTTL}
}

func (q *JobQueue) Enqueue(ctx context.Context, userID string, skillID int64) (string, error) {
	const op = "JobQueue.Enqueue"

	jobID := uuid.NewString()
	if err := q.Redis.Set(ctx, jobOwnerKey(jobID), userID, q.TTL).Err(); err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "failed to register job", err)
	}
	if err := q.PublishStatus(ctx, models.GenerationJob{JobID: jobID, SkillID: skillID, Status: models.JobQueued}); err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "failed to publish job status", err)
	}

	err := q.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: q.Stream,
		Values: map[string]any{
			"job_id":   jobID,
			"user_id":  userID,
			"skill_id": strconv.FormatInt(skillID, 10),
			"ts_unix":  strconv.FormatInt(time.Now().UTC().Unix(), 10),
		},
	}).Err()
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "failed to enqueue generation", err)
	}
	return jobID, nil
}

func (q *JobQueue) PublishStatus(ctx context.Context, job models.GenerationJob) error {
	job.Type = "job_status"
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.Redis.Set(ctx, jobLastKey(job.JobID), b, q.TTL).Err(); err != nil {
		return err
	}
	return q.Redis.Publish(ctx, JobStatusChannel(job.JobID), b).Err()
}

// Owner returns the user that enqueued jobID, or utils.ErrNotFound once the job has expired.
func (q *JobQueue) Owner(ctx context.Context, jobID string) (string, error) {
	v, err := q.Redis.Get(ctx, jobOwnerKey(jobID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", utils.ErrNotFound
	}
	return v, err
}

// LastStatus returns the most recent status payload, nil if none was stored.
func (q *JobQueue) LastStatus(ctx context.Context, jobID string) ([]byte, error) {
	b, err := q.Redis.Get(ctx, jobLastKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return b, err
}

// Subscription is the part of *redis.PubSub a status listener needs.
type Subscription interface {
	Receive(ctx context.Context) (interface{}, error)
	ReceiveMessage(ctx context.Context) (*redis.Message, error)
	Close() error
}

func (q *JobQueue) Subscribe(ctx context.Context, jobID string) Subscription {
	return q.Redis.Subscribe(ctx, JobStatusChannel(jobID))
}
