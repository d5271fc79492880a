package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/profdeck/canvas-grader/internal/models"
	"github.com/rs/zerolog"
)

const (
	maxDescriptionChars = 2500
	maxSubmissionChars  = 4000
	maxCommentWords     = 25
)

const gradingPreamble = `You are a supportive professor's grading assistant with one guiding principle:
if a student addresses a key point with any reasonable detail, they earn FULL marks for that point.
Grading is about recognising understanding, not hunting for perfection.`

var fullScoreComments = []string{
	"Really solid work here.",
	"This is exactly what I was looking for.",
	"You nailed it — nice work.",
	"Clear and well done, keep it up.",
	"Good stuff, you clearly put in the effort.",
	"Spot on, nothing missing here.",
	"This came together really well.",
	"You've got a good handle on this material.",
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{[^{}]+\}`)

type Scorer struct {
	runner      commandRunner
	model       string
	timeout     time.Duration
	maxAttempts int
	logger      zerolog.Logger
}

func NewScorer(command, model string, timeout time.Duration, maxAttempts int, logger zerolog.Logger) *Scorer {
	return &Scorer{
		runner:      execRunner{command: command},
		model:       model,
		timeout:     timeout,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// ScoreSubmission sends one submission to the oracle and post-processes
// its reply. Only timeouts are retried; any other failure resolves
// immediately to an outcome with Err set.
func (s *Scorer) ScoreSubmission(ctx context.Context, req *models.GradingRequirement, studentName, submissionText string) ScoreOutcome {
	prompt := s.buildPrompt(req, studentName, submissionText)

	var lastErr string
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		raw, err := s.runner.Run(ctx, s.timeout,
			"--print",
			"--dangerously-skip-permissions",
			"--model", s.model,
			"--no-session-persistence",
			prompt,
		)
		if errors.Is(err, ErrTimeout) {
			lastErr = fmt.Sprintf("oracle timeout (attempt %d/%d)", attempt, s.maxAttempts)
			s.logger.Warn().Str("student", studentName).Int("attempt", attempt).Msg("Scoring oracle timed out")
			continue
		}
		if err != nil {
			return failedOutcome(err.Error())
		}

		outcome, err := s.parseReply(raw, req.PointsPossible)
		if err != nil {
			return failedOutcome(err.Error())
		}
		return outcome
	}

	return failedOutcome(lastErr)
}

func failedOutcome(reason string) ScoreOutcome {
	return ScoreOutcome{Score: 0, LetterGrade: models.LetterNone, Err: reason}
}

func (s *Scorer) parseReply(raw string, points float64) (ScoreOutcome, error) {
	// The oracle is asked for pure JSON but replies may carry framing
	// text; take the first brace-delimited object.
	match := jsonObjectRe.FindString(raw)
	if match == "" {
		preview := raw
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return ScoreOutcome{}, fmt.Errorf("no JSON in oracle reply: %s", preview)
	}

	var reply struct {
		Score       interface{} `json:"score"`
		LetterGrade string      `json:"letter_grade"`
		Comments    string      `json:"comments"`
	}
	if err := json.Unmarshal([]byte(match), &reply); err != nil {
		return ScoreOutcome{}, fmt.Errorf("malformed JSON in oracle reply: %w", err)
	}

	score := models.ClampScore(coerceScore(reply.Score), points)

	letter := reply.LetterGrade
	if letter == "" {
		letter = models.ScoreToLetter(score, points)
	}

	comment := models.TruncateComment(reply.Comments, maxCommentWords)
	if score >= points && comment == "" {
		comment = fullScoreComments[rand.Intn(len(fullScoreComments))]
	}

	return ScoreOutcome{Score: score, LetterGrade: letter, Comments: comment}, nil
}

// truncateRunes cuts at a rune boundary so a clipped multi-byte
// character never feeds invalid UTF-8 into the prompt.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

// coerceScore tolerates the oracle returning the score as a number or a
// numeric string; anything else defaults to 0.
func coerceScore(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func (s *Scorer) buildPrompt(req *models.GradingRequirement, studentName, submissionText string) string {
	desc := truncateRunes(req.Description, maxDescriptionChars)
	text := truncateRunes(submissionText, maxSubmissionChars)

	var scoring string
	if len(req.Rubric) > 0 {
		var lines []string
		for _, cr := range req.Rubric {
			line := fmt.Sprintf("- %s (%g pts)", cr.Description, cr.Points)
			if cr.Detail != "" {
				line += ": " + cr.Detail
			}
			lines = append(lines, line)
		}
		scoring = fmt.Sprintf(`RUBRIC (use these criteria — they define the score breakdown):
%s

SCORING METHOD — rubric-based:
• For EACH rubric criterion: award FULL points for that criterion if the student addresses it
  with any reasonable detail or explanation. Partial credit only if the criterion is barely
  touched. Zero only if completely absent.
• Never deduct within a criterion for grammar, spelling, or writing quality.
• Sum the criterion scores to get the total.`, strings.Join(lines, "\n"))
	} else {
		scoring = fmt.Sprintf(`SCORING METHOD — key-point based (no rubric provided):
• Read the assignment description and identify ALL distinct key points / required topics.
• Divide %g points EVENLY across those key points.
• For EACH key point: award its FULL share of points if the student addresses it with any
  reasonable detail. Partial credit only if barely mentioned. Zero only if completely absent.
• Never deduct for grammar, spelling, or writing quality.
• Sum across all key points to get the total.`, req.PointsPossible)
	}

	return fmt.Sprintf(`%s

ASSIGNMENT: %s
POINTS POSSIBLE: %g

ASSIGNMENT DESCRIPTION:
%s

%s

STUDENT: %s

STUDENT SUBMISSION:
%s

FINAL RULE: When in doubt, give the benefit of the doubt and award full points for that item.
A student who shows genuine effort and addresses the key points — even briefly — earns full marks.
For full-score submissions, write a short human-sounding comment a real professor might say — casual and warm, not stiff or corporate.
For partial scores, briefly describe only what was missing in plain, direct language (25 words max).

Respond ONLY with valid JSON (no other text):
{"score": <number 0-%g>, "letter_grade": "A+/A/A-/B+/B/B-/C+/C/C-/D+/D/D-/F", "comments": "<if full score: one casual human-sounding sentence; if not full score: plain description of what was missing, 25 words or fewer>"}`,
		gradingPreamble, req.Name, req.PointsPossible, desc, scoring, studentName, text, req.PointsPossible)
}
