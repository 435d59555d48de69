package workers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/buildmate/internal/models"
	"github.com/yoockh/buildmate/internal/services"
	"github.com/yoockh/buildmate/internal/utils"
)

// StatusPublisher delivers job status updates to whoever is watching the job.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, job models.GenerationJob) error
}

// GenerationWorkerPool consumes generation jobs from a Redis stream with a consumer group.
// Each job loads the stored skill, generates ideas, saves the first one and publishes the outcome.
type GenerationWorkerPool struct {
	Redis      *redis.Client
	Skills     services.SkillService
	Ideas      services.IdeaService
	Publisher  StatusPublisher
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *GenerationWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Skills == nil || p.Ideas == nil || p.Publisher == nil {
		return errors.New("GenerationWorkerPool missing dependency: Redis/Skills/Ideas/Publisher must be set")
	}
	if p.Stream == "" {
		p.Stream = DefaultGenerationStream
	}
	if p.Group == "" {
		p.Group = "idea-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	p.Logger.WithFields(logrus.Fields{"stream": p.Stream, "workers": p.NumWorkers}).Info("generation workers started")
	return nil
}

func (p *GenerationWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    5,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("xreadgroup failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *GenerationWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		s, _ := msg.Values[k].(string)
		return s
	}

	jobID, userID := getStr("job_id"), getStr("user_id")
	skillID, err := strconv.ParseInt(getStr("skill_id"), 10, 64)
	if jobID == "" || userID == "" || err != nil {
		p.Logger.WithField("redis_id", msg.ID).Warn("dropping malformed generation job")
		return
	}
	p.Process(ctx, jobID, userID, skillID)
}

// Process runs one job to completion and publishes processing, then done or failed.
func (p *GenerationWorkerPool) Process(ctx context.Context, jobID, userID string, skillID int64) {
	log := p.Logger.WithFields(logrus.Fields{
		"job_id":   jobID,
		"user_id":  userID,
		"skill_id": skillID,
	})
	publish := func(job models.GenerationJob) {
		job.JobID, job.SkillID = jobID, skillID
		if err := p.Publisher.PublishStatus(ctx, job); err != nil {
			log.WithError(err).Warn("publish job status failed")
		}
	}
	fail := func(err error) {
		log.WithError(err).Warn("generation job failed")
		job := models.GenerationJob{Status: models.JobFailed, Message: utils.Message(err)}
		var ae *utils.AppError
		if errors.As(err, &ae) {
			job.Code = string(ae.Code)
		}
		publish(job)
	}

	publish(models.GenerationJob{Status: models.JobProcessing})

	skill, err := p.Skills.GetByID(ctx, userID, skillID)
	if err != nil {
		fail(err)
		return
	}

	idea, res := p.Ideas.GenerateAndSaveFirst(ctx, *skill)
	if !res.OK() {
		fail(res.Err)
		return
	}

	log.WithField("idea_id", idea.IdeaID).Info("generation job done")
	publish(models.GenerationJob{Status: models.JobDone, Idea: idea})
}
