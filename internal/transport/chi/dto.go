package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/vibematch/internal/domain/exposure"
	"github.com/kailas-cloud/vibematch/internal/domain/profile"
	"github.com/kailas-cloud/vibematch/internal/domain/recommendation"
	"github.com/kailas-cloud/vibematch/internal/domain/vector"
	"github.com/kailas-cloud/vibematch/internal/usecase/recommend"
)

// ErrorCode is the machine-readable error kind returned to clients.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeValidationFailed       ErrorCode = "validation_failed"
	ErrorCodeInvalidProfile         ErrorCode = "invalid_profile"
	ErrorCodeEmptyInput             ErrorCode = "empty_input"
	ErrorCodeVectorDimMismatch      ErrorCode = "vector_dim_mismatch"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeStoreUnavailable       ErrorCode = "store_unavailable"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// UserData is the wire form of a profile. Required list/text attributes are
// pointers so that a missing key differs from an empty value.
type UserData struct {
	UserID         string    `json:"user_id"`
	Gender         string    `json:"gender"`
	Interests      *[]string `json:"interests"`
	CampusVibeTags *[]string `json:"campusVibeTags"`
	HangoutSpot    *string   `json:"hangoutSpot"`
	Preferences    *string   `json:"preferences"`
	Prompt1        *string   `json:"prompts_1"`
	Prompt2        *string   `json:"prompts_2"`
	Prompt3        *string   `json:"prompts_3"`

	Name     string `json:"name,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Age      *int   `json:"age,omitempty" validate:"omitempty,min=18,max=120"`
	Location string `json:"location,omitempty"`
}

// ConvertRequest is the body of POST /convert_to_user_vector.
type ConvertRequest struct {
	UserData *UserData `json:"user_data" validate:"required"`
}

// UserVectorResponse is the body returned by POST /convert_to_user_vector.
type UserVectorResponse struct {
	UserID string    `json:"user_id"`
	Gender string    `json:"gender"`
	Vector []float32 `json:"vector"`
}

// CandidateData is one entry of all_users_vector_data.
type CandidateData struct {
	UserID string    `json:"user_id" validate:"required"`
	Gender string    `json:"gender"`
	Vector []float32 `json:"vector" validate:"required,min=1"`
}

// RecommendationsRequest is the body of POST /get_recommendations.
type RecommendationsRequest struct {
	TargetUserID string          `json:"target_user_id" validate:"required"`
	Candidates   []CandidateData `json:"all_users_vector_data" validate:"required,dive"`
	// Absent means the stored ledger is used.
	History          map[string]int `json:"recommendation_history" validate:"omitempty,dive,min=0"`
	LikedUsers       []UserID       `json:"liked_users"`
	NRecommendations *int           `json:"n_recommendations" validate:"omitempty,min=1,max=100"`
}

// RecommendationsResponse is the body returned by POST /get_recommendations.
type RecommendationsResponse struct {
	TargetUserID     string   `json:"target_user_id"`
	Recommendations  []string `json:"recommendations"`
	SimilarityScores []int    `json:"similarity_scores"`
	Count            int      `json:"count"`
}

// UserID accepts both JSON strings and numbers.
type UserID string

// UnmarshalJSON implements json.Unmarshaler.
func (u *UserID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*u = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("user id must be a string or a number: %s", b)
	}
	*u = UserID(n.String())
	return nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report JSON names instead of Go field names.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// validateRequest runs struct validation and flattens the errors into one client message.
func validateRequest(v any) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), strings.Split(fe.Namespace(), ".")[0]+".")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func (d *UserData) raw() profile.Raw {
	r := profile.Raw{
		UserID:      d.UserID,
		Gender:      d.Gender,
		Interests:   d.Interests,
		VibeTags:    d.CampusVibeTags,
		HangoutSpot: d.HangoutSpot,
		Preferences: d.Preferences,
		Prompts:     [profile.PromptSlots]*string{d.Prompt1, d.Prompt2, d.Prompt3},
		Name:        d.Name,
		Bio:         d.Bio,
		Location:    d.Location,
	}
	if d.Age != nil {
		r.Age = *d.Age
	}
	return r
}

func (req *RecommendationsRequest) toDomain() *recommend.Request {
	cands := make([]recommendation.Candidate, len(req.Candidates))
	for i, c := range req.Candidates {
		cands[i] = recommendation.Candidate{
			UserID: c.UserID,
			Gender: profile.ParseGender(c.Gender),
			Vector: vector.Vector(c.Vector),
		}
	}

	liked := make([]string, len(req.LikedUsers))
	for i, id := range req.LikedUsers {
		liked[i] = string(id)
	}

	var history exposure.Ledger
	if req.History != nil {
		history = exposure.Ledger(req.History)
	}

	limit := 0
	if req.NRecommendations != nil {
		limit = *req.NRecommendations
	}

	return &recommend.Request{
		TargetID:   req.TargetUserID,
		Candidates: cands,
		History:    history,
		Liked:      liked,
		Limit:      limit,
	}
}

func recommendationsToResponse(res *recommendation.Result) RecommendationsResponse {
	return RecommendationsResponse{
		TargetUserID:     res.TargetID,
		Recommendations:  res.UserIDs(),
		SimilarityScores: res.Scores(),
		Count:            len(res.Items),
	}
}
