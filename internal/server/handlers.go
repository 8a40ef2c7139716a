package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/ArCaneSec/apidock/internal/apidoc"
	"github.com/ArCaneSec/apidock/internal/export"
	"github.com/ArCaneSec/apidock/internal/pagination"
)

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.api.ListProjects(r.Context())
	if err != nil {
		s.fail(w, r, "list projects", err)
		return
	}
	writeData(w, projects)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var in apidoc.ProjectInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, "create project", err)
		return
	}
	id, err := s.api.CreateProject(r.Context(), &in)
	if err != nil {
		s.fail(w, r, "create project", err)
		return
	}
	writeCreated(w, id)
}

func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	projectID, err := queryID(r, "project_id")
	if err != nil {
		s.fail(w, r, "list groups", err)
		return
	}
	groups, err := s.api.ListGroups(r.Context(), projectID)
	if err != nil {
		s.fail(w, r, "list groups", err)
		return
	}
	writeData(w, groups)
}

// groupChange wraps a group operation that answers with a bare ok.
func (s *Server) groupChange(op string, fn func(context.Context, uint, *apidoc.GroupInput) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in apidoc.GroupInput
		if err := decode(w, r, &in); err != nil {
			s.fail(w, r, op, err)
			return
		}
		if err := fn(r.Context(), actor(r), &in); err != nil {
			s.fail(w, r, op, err)
			return
		}
		writeOK(w)
	}
}

func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	var in apidoc.GroupInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, "create group", err)
		return
	}
	id, err := s.api.CreateGroup(r.Context(), actor(r), &in)
	if err != nil {
		s.fail(w, r, "create group", err)
		return
	}
	writeCreated(w, id)
}

func (s *Server) renameGroup(w http.ResponseWriter, r *http.Request) {
	s.groupChange("rename group", s.api.RenameGroup)(w, r)
}

func (s *Server) deleteGroup(w http.ResponseWriter, r *http.Request) {
	s.groupChange("delete group", s.api.DeleteGroup)(w, r)
}

func (s *Server) createSecondGroup(w http.ResponseWriter, r *http.Request) {
	var in apidoc.GroupInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, "create second group", err)
		return
	}
	id, err := s.api.CreateSecondGroup(r.Context(), actor(r), &in)
	if err != nil {
		s.fail(w, r, "create second group", err)
		return
	}
	writeCreated(w, id)
}

func (s *Server) renameSecondGroup(w http.ResponseWriter, r *http.Request) {
	s.groupChange("rename second group", s.api.RenameSecondGroup)(w, r)
}

func (s *Server) deleteSecondGroup(w http.ResponseWriter, r *http.Request) {
	s.groupChange("delete second group", s.api.DeleteSecondGroup)(w, r)
}

func (s *Server) listAPIs(w http.ResponseWriter, r *http.Request) {
	q, err := pageQuery(r)
	if err != nil {
		s.fail(w, r, "list apis", err)
		return
	}
	projectID, err := queryID(r, "project_id")
	if err != nil {
		s.fail(w, r, "list apis", err)
		return
	}
	groupID, err := optionalQueryID(r, "first_group_id")
	if err != nil {
		s.fail(w, r, "list apis", err)
		return
	}

	page, err := s.api.ListAPIs(r.Context(), apidoc.APIQuery{
		ProjectID:    projectID,
		FirstGroupID: groupID,
		Name:         r.URL.Query().Get("name"),
		Page:         q.page,
		Size:         q.size,
	})
	if err != nil {
		s.fail(w, r, "list apis", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) getAPI(w http.ResponseWriter, r *http.Request) {
	projectID, apiID, err := apiRef(r)
	if err != nil {
		s.fail(w, r, "get api", err)
		return
	}
	api, err := s.api.GetAPI(r.Context(), projectID, apiID)
	if err != nil {
		s.fail(w, r, "get api", err)
		return
	}
	writeData(w, api)
}

func (s *Server) createAPI(w http.ResponseWriter, r *http.Request) {
	var in apidoc.CreateInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, "create api", err)
		return
	}
	id, err := s.api.CreateAPI(r.Context(), actor(r), &in)
	if err != nil {
		s.fail(w, r, "create api", err)
		return
	}
	writeCreated(w, id)
}

func (s *Server) updateAPI(w http.ResponseWriter, r *http.Request) {
	var in apidoc.UpdateInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, "update api", err)
		return
	}
	if err := s.api.UpdateAPI(r.Context(), actor(r), &in); err != nil {
		s.fail(w, r, "update api", err)
		return
	}
	writeOK(w)
}

func (s *Server) deleteAPIs(w http.ResponseWriter, r *http.Request) {
	var in apidoc.DeleteInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, "delete apis", err)
		return
	}
	if err := s.api.DeleteAPIs(r.Context(), actor(r), &in); err != nil {
		s.fail(w, r, "delete apis", err)
		return
	}
	writeOK(w)
}

func (s *Server) reassignGroup(w http.ResponseWriter, r *http.Request) {
	var in apidoc.ReassignInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, "reassign group", err)
		return
	}
	if err := s.api.ReassignGroup(r.Context(), actor(r), &in); err != nil {
		s.fail(w, r, "reassign group", err)
		return
	}
	writeOK(w)
}

type importRequest struct {
	ProjectID apidoc.ID `json:"project_id"`
	URL       string    `json:"url"`
}

func (s *Server) importAPIs(w http.ResponseWriter, r *http.Request) {
	var in importRequest
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, "import apis", err)
		return
	}
	if in.ProjectID == 0 {
		s.fail(w, r, "import apis", fmt.Errorf("%w: project_id is required", apidoc.ErrInvalidParameter))
		return
	}
	res, err := s.importer.Import(r.Context(), actor(r), uint(in.ProjectID), in.URL)
	if err != nil {
		s.fail(w, r, "import apis", err)
		return
	}
	writeData(w, res)
}

func (s *Server) addRequestHistory(w http.ResponseWriter, r *http.Request) {
	var in apidoc.RequestRecord
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, "add request history", err)
		return
	}
	id, err := s.api.AddRequestHistory(r.Context(), &in)
	if err != nil {
		s.fail(w, r, "add request history", err)
		return
	}
	writeCreated(w, id)
}

func (s *Server) listRequestHistory(w http.ResponseWriter, r *http.Request) {
	projectID, apiID, err := apiRef(r)
	if err != nil {
		s.fail(w, r, "list request history", err)
		return
	}
	history, err := s.api.RequestHistory(r.Context(), projectID, apiID)
	if err != nil {
		s.fail(w, r, "list request history", err)
		return
	}
	writeData(w, history)
}

func (s *Server) deleteRequestHistory(w http.ResponseWriter, r *http.Request) {
	var in apidoc.HistoryRef
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, "delete request history", err)
		return
	}
	if err := s.api.DeleteRequestHistory(r.Context(), actor(r), &in); err != nil {
		s.fail(w, r, "delete request history", err)
		return
	}
	writeOK(w)
}

func (s *Server) listOperationHistory(w http.ResponseWriter, r *http.Request) {
	projectID, apiID, err := apiRef(r)
	if err != nil {
		s.fail(w, r, "list operation history", err)
		return
	}
	q, err := pageQuery(r)
	if err != nil {
		s.fail(w, r, "list operation history", err)
		return
	}
	page, err := s.api.OperationHistory(r.Context(), apidoc.OperationQuery{
		ProjectID: projectID,
		APIID:     apiID,
		Page:      q.page,
		Size:      q.size,
	})
	if err != nil {
		s.fail(w, r, "list operation history", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) exportCatalogue(w http.ResponseWriter, r *http.Request) {
	projectID, err := queryID(r, "project_id")
	if err != nil {
		s.fail(w, r, "export", err)
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, r, "export", err)
		return
	}

	c, err := s.api.Catalogue(r.Context(), projectID)
	if err != nil {
		s.fail(w, r, "export", err)
		return
	}
	name, err := s.exports.Render(c, format)
	if err != nil {
		s.fail(w, r, "export", err)
		return
	}
	s.notify.ExportNotif(r.Context(), c.Label, name)
	writeData(w, map[string]string{"file": name})
}

func (s *Server) downloadExport(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	p, err := s.exports.Path(name)
	if err != nil {
		s.fail(w, r, "download export", err)
		return
	}

	f, err := os.Open(p)
	if err != nil {
		s.fail(w, r, "download export", export.ErrNoSuchFile)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		s.fail(w, r, "download export", err)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(p)+`"`)
	http.ServeContent(w, r, name, st.ModTime(), f)
}

type pageParams struct {
	page int
	size int
}

func pageQuery(r *http.Request) (pageParams, error) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		return pageParams{}, err
	}
	size, err := queryInt(r, "page_size", pagination.DefaultSize)
	if err != nil {
		return pageParams{}, err
	}
	return pageParams{page: page, size: size}, nil
}

func apiRef(r *http.Request) (uint, uint, error) {
	projectID, err := queryID(r, "project_id")
	if err != nil {
		return 0, 0, err
	}
	apiID, err := queryID(r, "api_id")
	if err != nil {
		return 0, 0, err
	}
	return projectID, apiID, nil
}
