package calimoto

import (
	"context"

	"github.com/pkg/errors"
)

const (
	classesEndpoint = "/parse/classes/"

	// itemLimit is the most records one query returns; the backend is not paged
	itemLimit = 10000

	itemInclude = "pictures"
)

// itemService implements the ItemService interface for one kind
type itemService struct {
	client *Client
	kind   Kind
}

// classQuery is a Parse find sent as a POST with _method GET
type classQuery struct {
	Where          map[string]string `json:"where"`
	Include        string            `json:"include"`
	Limit          int               `json:"limit"`
	Method         string            `json:"_method"`
	ApplicationID  string            `json:"_ApplicationId"`
	JavaScriptKey  string            `json:"_JavaScriptKey"`
	ClientVersion  string            `json:"_ClientVersion"`
	SessionToken   string            `json:"_SessionToken"`
	InstallationID string            `json:"_InstallationId"`
}

// Kind returns the record kind
func (s *itemService) Kind() Kind {
	return s.kind
}

// List retrieves all records of the logged-in user
func (s *itemService) List(ctx context.Context) ([]Record, error) {
	op := "list " + string(s.kind)
	logger := s.client.options.Logger

	var result struct {
		Results []Record `json:"results"`
	}

	err := s.client.withSession(ctx, op, func(ctx context.Context, session *Session, creds Credentials) error {
		query := classQuery{
			Where:          map[string]string{"userId": session.UserID},
			Include:        itemInclude,
			Limit:          itemLimit,
			Method:         "GET",
			ApplicationID:  creds.ApplicationID,
			JavaScriptKey:  creds.ClientKey,
			ClientVersion:  clientVersion,
			SessionToken:   session.SessionToken,
			InstallationID: session.InstallationID,
		}

		if logger != nil {
			logger.Debug("Fetching records", "kind", s.kind, "userId", session.UserID)
		}

		result.Results = nil
		return s.client.transport.Post(ctx, classesEndpoint+s.kind.ClassName(), query, nil, &result)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to %s", op)
	}

	records := result.Results
	if records == nil {
		records = []Record{}
	}

	if logger != nil {
		logger.Info("Fetched records", "kind", s.kind, "count", len(records))
	}

	return records, nil
}
