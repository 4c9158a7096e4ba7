package contacts

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"outdial-platform/internal/apperr"

	"github.com/google/uuid"
)

// Bounds on detail lists in the import report; the counts stay exact.
const (
	maxReportErrors  = 100
	maxReportSkipped = 50
)

// ImportReport summarizes one CSV import run.
type ImportReport struct {
	JobID          string   `json:"job_id"`
	Total          int      `json:"total"`
	Imported       int      `json:"imported"`
	Skipped        int      `json:"skipped"`
	Failed         int      `json:"failed"`
	Errors         []string `json:"errors"`
	SkippedDetails []string `json:"skipped_details"`
}

// Importer ingests contact CSVs.
//
// Column mapping is forgiving: phone may arrive as phone, phone_number,
// mobile or phone_e164; names as first_name/firstname or a single name
// column that gets split. Rows whose normalized phone duplicates an
// existing contact, or an earlier row in the same file, are skipped rather
// than errored.
type Importer struct {
	store Store
}

func NewImporter(store Store) *Importer {
	return &Importer{store: store}
}

func (im *Importer) Import(ctx context.Context, r io.Reader) (ImportReport, error) {
	rd := csv.NewReader(r)
	rd.TrimLeadingSpace = true

	header, err := rd.Read()
	if err != nil {
		return ImportReport{}, apperr.InvalidStatef("invalid csv: %v", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	existing, err := im.store.ExistingPhones(ctx)
	if err != nil {
		return ImportReport{}, err
	}

	report := ImportReport{
		JobID:          uuid.NewString(),
		Errors:         []string{},
		SkippedDetails: []string{},
	}

	rowNum := 0
	for {
		record, err := rd.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			report.Total++
			report.Failed++
			report.addError(fmt.Sprintf("Row %d: malformed csv row", rowNum))
			continue
		}
		report.Total++

		get := func(names ...string) string {
			for _, n := range names {
				if idx, ok := cols[n]; ok && idx < len(record) {
					if v := strings.TrimSpace(record[idx]); v != "" {
						return v
					}
				}
			}
			return ""
		}

		rawPhone := get("phone", "phone_number", "mobile", "phone_e164")
		if rawPhone == "" {
			report.Failed++
			report.addError(fmt.Sprintf("Row %d: Missing phone number", rowNum))
			continue
		}

		phoneE164 := ToE164(rawPhone)
		if !IsE164(phoneE164) || len(phoneE164) < 10 {
			report.Failed++
			report.addError(fmt.Sprintf("Row %d: Invalid phone format - %s", rowNum, rawPhone))
			continue
		}

		if _, dup := existing[phoneE164]; dup {
			report.Skipped++
			report.addSkipped(fmt.Sprintf("Row %d: Duplicate phone skipped - %s", rowNum, phoneE164))
			continue
		}
		existing[phoneE164] = struct{}{}

		firstName := get("first_name", "firstname")
		lastName := get("last_name", "lastname")
		if firstName == "" {
			if full := get("name"); full != "" {
				parts := strings.Fields(full)
				firstName = parts[0]
				if lastName == "" && len(parts) > 1 {
					lastName = strings.Join(parts[1:], " ")
				}
			}
		}

		var tags []string
		if raw := get("tags"); raw != "" {
			for _, t := range strings.Split(raw, ",") {
				if t = strings.TrimSpace(t); t != "" {
					tags = append(tags, t)
				}
			}
		}

		source := get("source")
		if source == "" {
			source = "import"
		}

		c := Contact{
			FirstName:  firstName,
			LastName:   lastName,
			Phone:      FormatForDisplay(phoneE164),
			PhoneE164:  phoneE164,
			Email:      get("email"),
			Tags:       tags,
			Source:     source,
			DedupeHash: DedupeHash(phoneE164),
		}

		if _, err := im.store.Create(ctx, c); err != nil {
			if errors.Is(err, ErrDuplicatePhone) {
				report.Skipped++
				report.addSkipped(fmt.Sprintf("Row %d: Duplicate phone skipped - %s", rowNum, phoneE164))
				continue
			}
			report.Failed++
			report.addError(fmt.Sprintf("Row %d: insert failed", rowNum))
			continue
		}
		report.Imported++
	}

	return report, nil
}

func (r *ImportReport) addError(msg string) {
	if len(r.Errors) < maxReportErrors {
		r.Errors = append(r.Errors, msg)
	}
}

func (r *ImportReport) addSkipped(msg string) {
	if len(r.SkippedDetails) < maxReportSkipped {
		r.SkippedDetails = append(r.SkippedDetails, msg)
	}
}
