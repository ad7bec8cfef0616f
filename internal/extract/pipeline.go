package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"profrank-backend/internal/components/assert"
	"profrank-backend/internal/components/telemetry"
	"profrank-backend/internal/course"
	"profrank-backend/internal/ranking"
	"profrank-backend/internal/scrapers/ratings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

const (
	report_pipeline_school    = "pipeline.school"
	report_pipeline_teachers  = "pipeline.teachers"
	report_pipeline_token     = "pipeline.token"
	report_pipeline_reviews   = "pipeline.reviews"
	report_pipeline_deadline  = "pipeline.deadline"
	report_pipeline_candidate = "pipeline.candidates"
)

var (
	ErrSchoolNotFound = errors.New("school not found")
	// ErrDeadline is returned when the deadline expired before a single
	// instructor could be aggregated.
	ErrDeadline = errors.New("deadline exceeded without results")
	// ErrRemoteUnavailable is wrapped along with ErrSchoolNotFound when the
	// school could not be searched at all.
	ErrRemoteUnavailable = errors.New("remote unavailable")
)

var tracer = otel.Tracer("extract")
var meter = otel.Meter("extract")

var matchedCounter, _ = meter.Int64Counter(
	"extract.instructors.matched",
	metric.WithDescription("instructors with at least one review matching the course"),
)

type Request struct {
	SchoolName string `json:"school_name"`
	// Department is matched as a substring of the teachers' departments.
	Department string `json:"department"`
	Course     string `json:"course"`
	// DeptCodeOverride replaces the department code parsed out of Course.
	DeptCodeOverride string   `json:"dept_code_override,omitempty"`
	PreferenceTags   []string `json:"preference_tags"`
}

// Result is everything a run found out, ExtractAndRank only returns its
// Instructors.
type Result struct {
	School     ratings.School
	Fields     ratings.SchemaFieldMap
	Token      course.Token
	Candidates int
	// Partial is true when the deadline cut the run short.
	Partial     bool
	Instructors []ranking.ScoredInstructor
}

type Pipeline struct {
	client *ratings.Client
	config Config
	scorer ranking.Scorer
	tel    telemetry.API
}

func New(client *ratings.Client, config Config, tel telemetry.API) *Pipeline {
	assert.NotNil(client, "client")
	assert.NotNil(tel, "tel")

	config = config.WithDefaults()
	return &Pipeline{
		client: client,
		config: config,
		scorer: ranking.NewScorer(config.Weights.Weights()),
		tel:    telemetry.NewScopedAPI("extract", tel),
	}
}

func (p *Pipeline) Config() Config {
	return p.config
}

// ExtractAndRank finds the instructors of a course at a school and ranks
// them against the preference tags. Failures of single teachers are only
// reported, an error is returned when the school cannot be found or when
// the deadline expires before any instructor was aggregated.
func (p *Pipeline) ExtractAndRank(ctx context.Context, req Request) ([]ranking.ScoredInstructor, error) {
	result, err := p.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return result.Instructors, nil
}

func (p *Pipeline) deadlineError(ctx context.Context) error {
	p.tel.ReportWarning(report_pipeline_deadline, ctx.Err())
	return fmt.Errorf("%w: %w", ErrDeadline, ctx.Err())
}

func (p *Pipeline) resolveSchool(ctx context.Context, name string) (ratings.School, error) {
	schools, err := p.client.SearchSchools(ctx, ratings.SchoolSearch{
		Name:     name,
		PageSize: p.config.Paging.SchoolPageSize,
		MaxPages: p.config.Paging.SchoolMaxPages,
		Pacing:   p.config.Pacing(),
	})
	if err != nil {
		p.tel.ReportWarning(report_pipeline_school, err, name)
	}
	school, ok := ratings.SelectSchool(schools, name)
	if ok {
		return school, nil
	}
	if ctx.Err() != nil {
		return ratings.School{}, p.deadlineError(ctx)
	}
	if err != nil {
		return ratings.School{}, fmt.Errorf("%w: %q: %w: %w", ErrSchoolNotFound, name, ErrRemoteUnavailable, err)
	}
	return ratings.School{}, fmt.Errorf("%w: %q", ErrSchoolNotFound, name)
}

type teacherJob struct {
	fields  ratings.SchemaFieldMap
	doc     ratings.QueryDocument
	tagDoc  ratings.QueryDocument
	hasTags bool
	matcher *course.Matcher
}

// aggregateTeacher returns ok = false when the teacher has no review
// matching the course or could not be fetched entirely.
func (p *Pipeline) aggregateTeacher(
	jobCtx context.Context,
	job teacherJob,
	candidate ratings.TeacherCandidate,
) (summary ranking.InstructorSummary, ok bool) {
	// a failing teacher must not cancel the others
	ctx, cancel := context.WithCancel(jobCtx)
	defer cancel()

	ctx, span := tracer.Start(ctx, "aggregateTeacher")
	defer span.End()
	span.SetAttributes(attribute.String("teacher_id", candidate.ID))

	reviews, err := p.client.Reviews(ctx, ratings.ReviewFetch{
		TeacherID: candidate.ID,
		Query:     job.doc,
		Fields:    job.fields,
		PageSize:  p.config.Paging.ReviewPageSize,
		MaxPages:  p.config.Paging.ReviewMaxPages,
		Pacing:    p.config.Pacing(),
	})
	if jobCtx.Err() != nil {
		return ranking.InstructorSummary{}, false
	}
	if err != nil {
		span.RecordError(err)
		p.tel.ReportWarning(report_pipeline_reviews, err, candidate.ID)
		if errors.Is(err, ratings.ErrRemoteSchema) {
			span.SetStatus(codes.Error, "teacher skipped")
			return ranking.InstructorSummary{}, false
		}
	}

	matched := job.matcher.Filter(reviews)
	if len(matched) == 0 {
		return ranking.InstructorSummary{}, false
	}

	var lookup TagLookup
	if job.hasTags {
		lookup = func(ctx context.Context, teacherID string) ([]string, error) {
			return p.client.TeacherTags(ctx, teacherID, job.tagDoc)
		}
	}
	span.SetAttributes(attribute.Int("matched_reviews", len(matched)))
	return Aggregate(ctx, p.tel, candidate, matched, lookup), true
}

// Run is ExtractAndRank but also returns what was discovered on the way.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	ctx, span := tracer.Start(ctx, "ExtractAndRank")
	defer span.End()
	span.SetAttributes(
		attribute.String("school", req.SchoolName),
		attribute.String("department", req.Department),
		attribute.String("course", req.Course),
	)

	jobCtx, cancel := context.WithTimeout(ctx, p.config.Deadline())
	defer cancel()

	var result Result

	result.Fields = p.client.ProbeSchema(jobCtx, ratings.ProbeOptions{
		ReviewTypeName:  p.config.ReviewTypeName,
		TeacherTypeName: p.config.TeacherTypeName,
	})
	job := teacherJob{
		fields: result.Fields,
		doc:    ratings.BuildReviewQuery(result.Fields),
	}
	job.tagDoc, job.hasTags = ratings.BuildTeacherTagsQuery(result.Fields)

	school, err := p.resolveSchool(jobCtx, req.SchoolName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "school not resolved")
		return Result{}, err
	}
	result.School = school

	result.Token = course.Normalize(req.Course).WithDeptOverride(req.DeptCodeOverride)
	if result.Token.Number == "" {
		p.tel.ReportWarning(report_pipeline_token, "no course number", req.Course)
		result.Instructors = []ranking.ScoredInstructor{}
		return result, nil
	}
	job.matcher = course.NewMatcher(result.Token)

	teachers, err := p.client.SearchTeachers(jobCtx, ratings.TeacherSearch{
		SchoolID:         school.ID,
		Department:       req.Department,
		PageSize:         p.config.Paging.TeacherPageSize,
		MaxPages:         p.config.Paging.TeacherMaxPages,
		FallbackMaxPages: p.config.Paging.TeacherFallbackMaxPages,
		Pacing:           p.config.Pacing(),
	})
	if err != nil {
		p.tel.ReportWarning(report_pipeline_teachers, err, school.ID, req.Department)
	}

	candidates := make([]ratings.TeacherCandidate, 0, len(teachers))
	for _, t := range teachers {
		if t.NumRatings > 0 {
			candidates = append(candidates, t)
		}
	}
	result.Candidates = len(candidates)
	p.tel.ReportCount(report_pipeline_candidate, int64(len(candidates)))

	var mutex sync.Mutex
	summaries := []ranking.InstructorSummary{}

	group := errgroup.Group{}
	group.SetLimit(p.config.Workers)
	for _, candidate := range candidates {
		if jobCtx.Err() != nil {
			break
		}
		group.Go(func() error {
			summary, ok := p.aggregateTeacher(jobCtx, job, candidate)
			if !ok {
				return nil
			}
			mutex.Lock()
			summaries = append(summaries, summary)
			mutex.Unlock()
			return nil
		})
	}
	// workers never return an error
	_ = group.Wait()

	matchedCounter.Add(ctx, int64(len(summaries)))
	span.SetAttributes(
		attribute.Int("candidates", len(candidates)),
		attribute.Int("instructors", len(summaries)),
	)

	if jobCtx.Err() != nil {
		if len(summaries) == 0 {
			return Result{}, p.deadlineError(jobCtx)
		}
		result.Partial = true
		p.tel.ReportWarning(report_pipeline_deadline, "returning partial results", len(summaries), len(candidates))
	}

	result.Instructors = p.scorer.Rank(req.PreferenceTags, summaries)
	return result, nil
}
