package sessions

import (
    "context"
    "errors"
    "net/http"
    "net/url"
    "time"

    "LoadCoach/internal/domain/models"
    domrepo "LoadCoach/internal/domain/repository"
    xhttp "LoadCoach/pkg/http"
    "LoadCoach/pkg/util"
)

// HTTPHistoryStore reads completed sessions from the host application's session API.
type HTTPHistoryStore struct{ base *HTTPServiceBase }

func NewHTTPHistoryStore(base *HTTPServiceBase) *HTTPHistoryStore {
    return &HTTPHistoryStore{base: base}
}

type sessionDTO struct {
    Date            string  `json:"date"`
    Stress          float64 `json:"stress"`
    DurationMinutes float64 `json:"duration_minutes"`
    WorkoutType     string  `json:"workout_type"`
}

type sessionsResp struct {
    Sessions []sessionDTO `json:"sessions"`
}

// SessionsBetween treats an unknown user (404) as an empty history.
func (s *HTTPHistoryStore) SessionsBetween(ctx context.Context, userID string, from, to time.Time) ([]models.StressRecord, error) {
    var resp sessionsResp
    query := map[string][]string{
        "from": {util.FormatDay(from)},
        "to":   {util.FormatDay(to)},
    }
    err := s.base.GetJSONWithRetry(ctx, "/users/"+url.PathEscape(userID)+"/sessions", query, &resp)
    var se *xhttp.StatusError
    if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
        return []models.StressRecord{}, nil
    }
    if err != nil {
        return nil, err
    }

    out := make([]models.StressRecord, 0, len(resp.Sessions))
    for _, dto := range resp.Sessions {
        d, ok := util.ParseTime(dto.Date)
        if !ok {
            continue
        }
        out = append(out, models.StressRecord{
            UserID:      userID,
            Date:        d,
            Stress:      dto.Stress,
            Duration:    time.Duration(dto.DurationMinutes * float64(time.Minute)),
            WorkoutType: dto.WorkoutType,
        })
    }
    return out, nil
}

var _ domrepo.LoadHistoryStore = (*HTTPHistoryStore)(nil)
