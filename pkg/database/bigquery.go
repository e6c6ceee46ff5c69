package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
)

// BigQuery mirrors stored courses into a warehouse table for downstream
// reporting. Each export is staged in a temp table and merged, so courses
// are upserted on (university, subject, number) and their sections replaced.
type BigQuery struct {
	client  *bigquery.Client
	dataset *bigquery.Dataset
}

type warehouseCourse struct {
	University       string             `bigquery:"university"`
	Subject          string             `bigquery:"subject"`
	Number           string             `bigquery:"number"`
	Title            string             `bigquery:"title"`
	Credits          int                `bigquery:"credits"`
	Description      string             `bigquery:"description"`
	Attributes       []string           `bigquery:"attributes"`
	PrerequisiteText string             `bigquery:"prerequisite_text"`
	Prerequisites    []string           `bigquery:"prerequisites"`
	Sections         []warehouseSection `bigquery:"sections"`
	ExportedAt       time.Time          `bigquery:"exported_at"`
}

type warehouseSection struct {
	Instructor string              `bigquery:"instructor"`
	Days       []string            `bigquery:"days"`
	StartTime  bigquery.NullString `bigquery:"start_time"`
	EndTime    bigquery.NullString `bigquery:"end_time"`
	Terms      []string            `bigquery:"terms"`
}

const auditRetention = 7 * 24 * time.Hour

func NewBigQuery(ctx context.Context, projectID, datasetID string) (*BigQuery, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	dataset := client.Dataset(datasetID)
	if err := dataset.Create(ctx, nil); err != nil {
		if !isDuplicateError(err) {
			return nil, fmt.Errorf("failed to create dataset: %w", err)
		}
	}

	return &BigQuery{client: client, dataset: dataset}, nil
}

// ExportCourses merges the courses of one university into tableName.
func (bq *BigQuery) ExportCourses(ctx context.Context, tableName, university string, courses []StoredCourse) error {
	if len(courses) == 0 {
		return nil
	}

	schema, err := bigquery.InferSchema(warehouseCourse{})
	if err != nil {
		return fmt.Errorf("failed to infer schema: %w", err)
	}

	table := bq.dataset.Table(tableName)
	if err := table.Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
		if !isDuplicateError(err) {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// Uses a different table each time: https://stackoverflow.com/a/51998193/5623874
	tempName := tableName + "_" + strconv.FormatInt(time.Now().Unix(), 10)
	arrivals := bq.dataset.Table(tempName)
	if err := arrivals.Create(ctx, &bigquery.TableMetadata{
		Schema:         schema,
		ExpirationTime: time.Now().Add(auditRetention),
	}); err != nil {
		if !isDuplicateError(err) {
			return fmt.Errorf("failed to create arrivals table: %w", err)
		}
	}

	now := time.Now().UTC()
	rows := make([]warehouseCourse, 0, len(courses))
	for _, c := range courses {
		rows = append(rows, toWarehouse(university, c, now))
	}
	if err := arrivals.Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("failed to insert rows: %w", err)
	}

	q := bq.client.Query(fmt.Sprintf(`
		MERGE %[1]s.%[2]s t
		USING %[1]s.%[3]s s
		ON t.university = s.university
		  AND t.subject = s.subject
		  AND t.number = s.number
		WHEN MATCHED THEN
		  UPDATE
		    SET title = s.title,
		        credits = s.credits,
		        description = s.description,
		        attributes = s.attributes,
		        prerequisite_text = s.prerequisite_text,
		        prerequisites = s.prerequisites,
		        sections = s.sections,
		        exported_at = s.exported_at
		WHEN NOT MATCHED THEN
		  INSERT ROW`, bq.dataset.DatasetID, tableName, tempName))
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("failed to wait for merge: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}
	return nil
}

func (bq *BigQuery) Close() error {
	return bq.client.Close()
}

func toWarehouse(university string, c StoredCourse, exportedAt time.Time) warehouseCourse {
	row := warehouseCourse{
		University:       university,
		Subject:          c.Subject,
		Number:           c.Number,
		Title:            c.Title,
		Credits:          c.Credits,
		Description:      c.Description,
		Attributes:       c.Attributes,
		PrerequisiteText: c.PrerequisiteText,
		Prerequisites:    c.Prerequisites,
		ExportedAt:       exportedAt,
	}
	for _, s := range c.Sections {
		section := warehouseSection{
			Instructor: s.Instructor,
			Days:       s.Days,
			Terms:      s.Terms,
		}
		if s.StartTime != nil {
			section.StartTime = bigquery.NullString{StringVal: s.StartTime.String(), Valid: true}
		}
		if s.EndTime != nil {
			section.EndTime = bigquery.NullString{StringVal: s.EndTime.String(), Valid: true}
		}
		row.Sections = append(row.Sections, section)
	}
	return row
}

func isDuplicateError(err error) bool {
	var e *googleapi.Error
	if errors.As(err, &e) {
		return e.Code == 409
	}
	return false
}
