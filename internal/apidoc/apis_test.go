package apidoc_test

import (
	"fmt"
	"testing"

	"github.com/ArCaneSec/apidock/internal/apidoc"
	"github.com/ArCaneSec/apidock/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) loginInput() *apidoc.CreateInput {
	return decode[apidoc.CreateInput](f.t, fmt.Sprintf(`{
		"project_id": %d,
		"name": "Login",
		"httpType": "HTTP",
		"requestType": "POST",
		"apiAddress": "/login",
		"requestParameterType": "form-data",
		"status": true,
		"requestList": [{"name": "user"}, {"name": "pass"}]
	}`, f.project))
}

func TestCreateAndFetch(t *testing.T) {
	f := newFixture(t)

	id, err := f.svc.CreateAPI(f.ctx, actor, f.loginInput())
	require.NoError(t, err)
	require.NotZero(t, id)

	api, err := f.svc.GetAPI(f.ctx, f.project, id)
	require.NoError(t, err)
	assert.Equal(t, "Login", api.Name)
	assert.Equal(t, []string{"user", "pass"}, paramNames(api))
	assert.Empty(t, api.Headers)
	assert.Empty(t, api.Responses)
	assert.Nil(t, api.ParameterRaw)
	assert.Nil(t, api.GroupFirstID)
	assert.EqualValues(t, actor, api.UserUpdate)

	assert.EqualValues(t, 1, f.count(&models.OperationHistory{}, "api_id = ?", id))
	assert.EqualValues(t, 1, f.count(&models.ProjectDynamic{}, "project_id = ? AND type = ?", f.project, apidoc.DynamicCreate))
}

func TestCreateSkipsUnnamedRows(t *testing.T) {
	f := newFixture(t)

	in := decode[apidoc.CreateInput](t, fmt.Sprintf(`{
		"project_id": "%d",
		"name": "Search",
		"httpType": "HTTPS",
		"requestType": "GET",
		"apiAddress": "/search",
		"requestParameterType": "form-data",
		"status": false,
		"headDict": [{"name": "Accept", "value": "application/json"}, {"name": ""}],
		"requestList": [{"name": "q", "_type": "String", "required": true}, {"name": ""}],
		"responseList": [{"name": "items", "_type": "Array"}, {"value": "x"}]
	}`, f.project))

	id, err := f.svc.CreateAPI(f.ctx, actor, in)
	require.NoError(t, err)

	api, err := f.svc.GetAPI(f.ctx, f.project, id)
	require.NoError(t, err)
	require.Len(t, api.Headers, 1)
	assert.Equal(t, "application/json", api.Headers[0].Value)
	require.Len(t, api.Parameters, 1)
	assert.True(t, api.Parameters[0].Required)
	require.Len(t, api.Responses, 1)
	assert.Equal(t, "Array", api.Responses[0].Type)
	assert.False(t, api.Status)
}

func TestCreateRawPayload(t *testing.T) {
	f := newFixture(t)

	in := decode[apidoc.CreateInput](t, fmt.Sprintf(`{
		"project_id": %d,
		"name": "Upload",
		"httpType": "HTTP",
		"requestType": "PUT",
		"apiAddress": "/upload",
		"requestParameterType": "raw",
		"status": true,
		"requestList": {"file": "a.txt", "size": 3}
	}`, f.project))

	id, err := f.svc.CreateAPI(f.ctx, actor, in)
	require.NoError(t, err)

	api, err := f.svc.GetAPI(f.ctx, f.project, id)
	require.NoError(t, err)
	require.NotNil(t, api.ParameterRaw)
	assert.JSONEq(t, `{"file": "a.txt", "size": 3}`, string(api.ParameterRaw.Data))
	assert.Empty(t, api.Parameters)
}

func TestCreateRejectsBadShape(t *testing.T) {
	f := newFixture(t)

	tests := map[string]func(in *apidoc.CreateInput){
		"missing name":     func(in *apidoc.CreateInput) { in.Name = "" },
		"bad protocol":     func(in *apidoc.CreateInput) { in.HTTPType = "FTP" },
		"bad method":       func(in *apidoc.CreateInput) { in.RequestType = "PATCH" },
		"bad encoding":     func(in *apidoc.CreateInput) { in.RequestParameterType = "json" },
		"missing status":   func(in *apidoc.CreateInput) { in.Status = nil },
		"missing project":  func(in *apidoc.CreateInput) { in.ProjectID = 0 },
		"second alone":     func(in *apidoc.CreateInput) { in.SecondGroupID = ptr(1) },
		"malformed params": func(in *apidoc.CreateInput) { in.RequestList = []byte(`{"name":"x"}`) },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			in := f.loginInput()
			mutate(in)
			_, err := f.svc.CreateAPI(f.ctx, actor, in)
			assert.ErrorIs(t, err, apidoc.ErrInvalidParameter)
		})
	}
	assert.Zero(t, f.count(&models.ApiDefinition{}))
}

func TestCreateUnknownReferences(t *testing.T) {
	f := newFixture(t)

	in := f.loginInput()
	in.ProjectID = 999
	_, err := f.svc.CreateAPI(f.ctx, actor, in)
	assert.ErrorIs(t, err, apidoc.ErrProjectNotFound)

	in = f.loginInput()
	in.FirstGroupID = ptr(999)
	_, err = f.svc.CreateAPI(f.ctx, actor, in)
	assert.ErrorIs(t, err, apidoc.ErrGroupNotFound)

	// a second level group must sit under the named first level group
	a, b := f.group("a"), f.group("b")
	sb := f.secondGroup(b, "b1")
	in = f.loginInput()
	in.FirstGroupID, in.SecondGroupID = ptr(a), ptr(sb)
	_, err = f.svc.CreateAPI(f.ctx, actor, in)
	assert.ErrorIs(t, err, apidoc.ErrGroupNotFound)

	assert.Zero(t, f.count(&models.ApiDefinition{}))
}

func TestCreateNameConflict(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateAPI(f.ctx, actor, f.loginInput())
	require.NoError(t, err)

	_, err = f.svc.CreateAPI(f.ctx, actor, f.loginInput())
	assert.ErrorIs(t, err, apidoc.ErrNameConflict)
	assert.EqualValues(t, 1, f.count(&models.ApiDefinition{}))
	assert.EqualValues(t, 2, f.count(&models.ApiParameter{}))

	// names are only unique inside a project
	other, err := f.svc.CreateProject(f.ctx, &apidoc.ProjectInput{Name: "other"})
	require.NoError(t, err)
	in := f.loginInput()
	in.ProjectID = apidoc.ID(other)
	_, err = f.svc.CreateAPI(f.ctx, actor, in)
	assert.NoError(t, err)
}

func TestCreateRollsBackOnBadChildRow(t *testing.T) {
	f := newFixture(t)

	in := decode[apidoc.CreateInput](t, fmt.Sprintf(`{
		"project_id": %d,
		"name": "Broken",
		"httpType": "HTTP",
		"requestType": "GET",
		"apiAddress": "/broken",
		"requestParameterType": "form-data",
		"status": true,
		"headDict": [{"name": "X-Trace"}],
		"requestList": [{"name": "id"}],
		"responseList": [{"name": "id", "_type": "Decimal"}]
	}`, f.project))

	_, err := f.svc.CreateAPI(f.ctx, actor, in)
	require.ErrorIs(t, err, apidoc.ErrOperationFailed)

	assert.Zero(t, f.count(&models.ApiDefinition{}))
	assert.Zero(t, f.count(&models.ApiHeader{}))
	assert.Zero(t, f.count(&models.ApiParameter{}))
	assert.Zero(t, f.count(&models.OperationHistory{}))
	assert.Zero(t, f.count(&models.ProjectDynamic{}))
}

func (f *fixture) updateInput(apiID uint, first, second uint, requestList string) *apidoc.UpdateInput {
	return decode[apidoc.UpdateInput](f.t, fmt.Sprintf(`{
		"api_id": %d,
		"project_id": %d,
		"first_group_id": %d,
		"second_group_id": %d,
		"name": "Login",
		"httpType": "HTTPS",
		"requestType": "POST",
		"apiAddress": "/v2/login",
		"requestParameterType": "form-data",
		"status": true,
		"requestList": %s
	}`, apiID, f.project, first, second, requestList))
}

func TestUpdateReconcilesParameters(t *testing.T) {
	f := newFixture(t)
	first := f.group("auth")
	second := f.secondGroup(first, "session")

	id, err := f.svc.CreateAPI(f.ctx, actor, f.loginInput())
	require.NoError(t, err)
	created, err := f.svc.GetAPI(f.ctx, f.project, id)
	require.NoError(t, err)
	userRow, passRow := created.Parameters[0], created.Parameters[1]

	list := fmt.Sprintf(`[{"id": %d, "name": "user", "value": "u1"}, {"name": "email"}]`, userRow.ID)
	require.NoError(t, f.svc.UpdateAPI(f.ctx, actor, f.updateInput(id, first, second, list)))

	api, err := f.svc.GetAPI(f.ctx, f.project, id)
	require.NoError(t, err)
	require.Equal(t, []string{"user", "email"}, paramNames(api))
	assert.Equal(t, userRow.ID, api.Parameters[0].ID)
	assert.Equal(t, "u1", api.Parameters[0].Value)
	assert.Zero(t, f.count(&models.ApiParameter{}, "id = ?", passRow.ID))

	assert.Equal(t, "HTTPS", api.HTTPType)
	assert.Equal(t, "/v2/login", api.APIAddress)
	require.NotNil(t, api.GroupFirstID)
	require.NotNil(t, api.GroupSecondID)
	assert.Equal(t, first, *api.GroupFirstID)
	assert.Equal(t, second, *api.GroupSecondID)

	assert.EqualValues(t, 2, f.count(&models.OperationHistory{}, "api_id = ?", id))
}

func TestUpdateReconcilesHeadersAndResponses(t *testing.T) {
	f := newFixture(t)
	first := f.group("auth")
	second := f.secondGroup(first, "session")

	in := f.loginInput()
	in.Headers = []apidoc.HeaderRow{{Name: "Accept", Value: "*/*"}, {Name: "X-Trace", Value: "1"}}
	in.Responses = []apidoc.ResponseRow{{Name: "code", Type: "Int"}, {Name: "msg", Type: "String"}}
	id, err := f.svc.CreateAPI(f.ctx, actor, in)
	require.NoError(t, err)
	created, err := f.svc.GetAPI(f.ctx, f.project, id)
	require.NoError(t, err)
	require.Len(t, created.Headers, 2)
	require.Len(t, created.Responses, 2)
	accept, trace := created.Headers[0], created.Headers[1]
	code, msg := created.Responses[0], created.Responses[1]

	up := f.updateInput(id, first, second, `[{"name": "user"}]`)
	up.Headers = []apidoc.HeaderRow{
		{ID: ptr(accept.ID), Name: "Accept", Value: "application/json"},
		{Name: "Authorization", Value: "Bearer t"},
	}
	// the unnamed row keeps its stored counterpart as it is
	up.Responses = []apidoc.ResponseRow{{ID: ptr(code.ID), Name: "", Type: "String"}}
	require.NoError(t, f.svc.UpdateAPI(f.ctx, actor, up))

	api, err := f.svc.GetAPI(f.ctx, f.project, id)
	require.NoError(t, err)

	require.Len(t, api.Headers, 2)
	assert.Equal(t, accept.ID, api.Headers[0].ID)
	assert.Equal(t, "application/json", api.Headers[0].Value)
	assert.Equal(t, "Authorization", api.Headers[1].Name)
	assert.Zero(t, f.count(&models.ApiHeader{}, "id = ?", trace.ID))

	require.Len(t, api.Responses, 1)
	assert.Equal(t, code.ID, api.Responses[0].ID)
	assert.Equal(t, "code", api.Responses[0].Name)
	assert.Equal(t, "Int", api.Responses[0].Type)
	assert.Zero(t, f.count(&models.ApiResponseField{}, "id = ?", msg.ID))
}

func TestUpdateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	first := f.group("auth")
	second := f.secondGroup(first, "session")

	id, err := f.svc.CreateAPI(f.ctx, actor, f.loginInput())
	require.NoError(t, err)
	created, err := f.svc.GetAPI(f.ctx, f.project, id)
	require.NoError(t, err)

	list := fmt.Sprintf(`[{"id": %d, "name": "user", "value": "u1"}, {"id": %d, "name": "pass"}]`,
		created.Parameters[0].ID, created.Parameters[1].ID)

	require.NoError(t, f.svc.UpdateAPI(f.ctx, actor, f.updateInput(id, first, second, list)))
	once, err := f.svc.GetAPI(f.ctx, f.project, id)
	require.NoError(t, err)

	require.NoError(t, f.svc.UpdateAPI(f.ctx, actor, f.updateInput(id, first, second, list)))
	twice, err := f.svc.GetAPI(f.ctx, f.project, id)
	require.NoError(t, err)

	assert.Equal(t, once.Parameters, twice.Parameters)
	assert.Equal(t, once.Headers, twice.Headers)
	assert.Equal(t, once.Responses, twice.Responses)
}

func TestUpdateRequiresBothGroups(t *testing.T) {
	f := newFixture(t)
	first := f.group("auth")

	id, err := f.svc.CreateAPI(f.ctx, actor, f.loginInput())
	require.NoError(t, err)

	in := f.updateInput(id, first, 0, `[]`)
	err = f.svc.UpdateAPI(f.ctx, actor, in)
	assert.ErrorIs(t, err, apidoc.ErrInvalidParameter)

	in = f.updateInput(id, 0, 0, `[]`)
	err = f.svc.UpdateAPI(f.ctx, actor, in)
	assert.ErrorIs(t, err, apidoc.ErrInvalidParameter)
}

func TestUpdateConflictsAndMissing(t *testing.T) {
	f := newFixture(t)
	first := f.group("auth")
	second := f.secondGroup(first, "session")

	id, err := f.svc.CreateAPI(f.ctx, actor, f.loginInput())
	require.NoError(t, err)
	other := f.loginInput()
	other.Name = "Logout"
	otherID, err := f.svc.CreateAPI(f.ctx, actor, other)
	require.NoError(t, err)

	// renaming Logout to Login collides
	err = f.svc.UpdateAPI(f.ctx, actor, f.updateInput(otherID, first, second, `[]`))
	assert.ErrorIs(t, err, apidoc.ErrNameConflict)

	err = f.svc.UpdateAPI(f.ctx, actor, f.updateInput(999, first, second, `[]`))
	assert.ErrorIs(t, err, apidoc.ErrAPINotFound)

	// keeping its own name is fine
	assert.NoError(t, f.svc.UpdateAPI(f.ctx, actor, f.updateInput(id, first, second, `[]`)))
	assert.Zero(t, f.count(&models.ApiParameter{}, "api_id = ?", id))
}

func TestUpdateSwitchesEncoding(t *testing.T) {
	f := newFixture(t)
	first := f.group("auth")
	second := f.secondGroup(first, "session")

	id, err := f.svc.CreateAPI(f.ctx, actor, f.loginInput())
	require.NoError(t, err)

	in := f.updateInput(id, first, second, `{"user": "u", "pass": "p"}`)
	in.RequestParameterType = apidoc.EncodingRaw
	require.NoError(t, f.svc.UpdateAPI(f.ctx, actor, in))

	api, err := f.svc.GetAPI(f.ctx, f.project, id)
	require.NoError(t, err)
	assert.Empty(t, api.Parameters)
	require.NotNil(t, api.ParameterRaw)
	assert.JSONEq(t, `{"user": "u", "pass": "p"}`, string(api.ParameterRaw.Data))

	// a new raw body replaces the old one wholesale
	in = f.updateInput(id, first, second, `["a"]`)
	in.RequestParameterType = apidoc.EncodingRestful
	require.NoError(t, f.svc.UpdateAPI(f.ctx, actor, in))
	assert.EqualValues(t, 1, f.count(&models.ApiParameterRaw{}, "api_id = ?", id))

	in = f.updateInput(id, first, second, `[{"name": "token"}]`)
	require.NoError(t, f.svc.UpdateAPI(f.ctx, actor, in))
	assert.Zero(t, f.count(&models.ApiParameterRaw{}, "api_id = ?", id))
	assert.EqualValues(t, 1, f.count(&models.ApiParameter{}, "api_id = ?", id))
}

func TestUpdateRollsBackOnBadChildRow(t *testing.T) {
	f := newFixture(t)
	first := f.group("auth")
	second := f.secondGroup(first, "session")

	id, err := f.svc.CreateAPI(f.ctx, actor, f.loginInput())
	require.NoError(t, err)

	in := f.updateInput(id, first, second, `[{"name": "only"}]`)
	in.Responses = []apidoc.ResponseRow{{Name: "bad", Type: "Decimal"}}
	err = f.svc.UpdateAPI(f.ctx, actor, in)
	require.ErrorIs(t, err, apidoc.ErrOperationFailed)

	api, err := f.svc.GetAPI(f.ctx, f.project, id)
	require.NoError(t, err)
	assert.Equal(t, "/login", api.APIAddress)
	assert.Nil(t, api.GroupFirstID)
	assert.Equal(t, []string{"user", "pass"}, paramNames(api))
	assert.EqualValues(t, 1, f.count(&models.OperationHistory{}, "api_id = ?", id))
}

func TestDeleteAPIs(t *testing.T) {
	f := newFixture(t)

	id, err := f.svc.CreateAPI(f.ctx, actor, f.loginInput())
	require.NoError(t, err)
	_, err = f.svc.AddRequestHistory(f.ctx, &apidoc.RequestRecord{
		ProjectID: apidoc.ID(f.project), APIID: apidoc.ID(id),
		RequestType: "POST", URL: "http://localhost/login", HTTPStatus: "200",
	})
	require.NoError(t, err)

	in := decode[apidoc.DeleteInput](t, fmt.Sprintf(`{"project_id": %d, "api_ids": "%d,999"}`, f.project, id))
	require.NoError(t, f.svc.DeleteAPIs(f.ctx, actor, in))

	assert.Zero(t, f.count(&models.ApiDefinition{}))
	assert.Zero(t, f.count(&models.ApiParameter{}))
	assert.Zero(t, f.count(&models.RequestHistory{}))
	assert.Zero(t, f.count(&models.OperationHistory{}))
	assert.EqualValues(t, 1, f.count(&models.ProjectDynamic{}, "type = ? AND operation_object = ?", apidoc.DynamicDelete, apidoc.ObjectAPI))

	_, err = f.svc.GetAPI(f.ctx, f.project, id)
	assert.ErrorIs(t, err, apidoc.ErrAPINotFound)
}

func TestReassignGroup(t *testing.T) {
	f := newFixture(t)
	a, b := f.group("a"), f.group("b")
	a1 := f.secondGroup(a, "a1")
	b1 := f.secondGroup(b, "b1")

	login := f.loginInput()
	login.FirstGroupID, login.SecondGroupID = ptr(a), ptr(a1)
	id, err := f.svc.CreateAPI(f.ctx, actor, login)
	require.NoError(t, err)

	// moving with both levels
	in := decode[apidoc.ReassignInput](t, fmt.Sprintf(`{"project_id": %d, "api_ids": [%d, 999], "first_group_id": %d, "second_group_id": %d}`, f.project, id, b, b1))
	require.NoError(t, f.svc.ReassignGroup(f.ctx, actor, in))
	api, err := f.svc.GetAPI(f.ctx, f.project, id)
	require.NoError(t, err)
	assert.Equal(t, b, *api.GroupFirstID)
	assert.Equal(t, b1, *api.GroupSecondID)

	// omitting the second level clears it
	in = decode[apidoc.ReassignInput](t, fmt.Sprintf(`{"project_id": %d, "api_ids": [%d], "first_group_id": %d}`, f.project, id, a))
	require.NoError(t, f.svc.ReassignGroup(f.ctx, actor, in))
	api, err = f.svc.GetAPI(f.ctx, f.project, id)
	require.NoError(t, err)
	assert.Equal(t, a, *api.GroupFirstID)
	assert.Nil(t, api.GroupSecondID)

	// b1 is not under a
	// an empty second level id counts as omitted
	in = decode[apidoc.ReassignInput](t, fmt.Sprintf(`{"project_id": "%d", "api_ids": "%d", "first_group_id": "%d", "second_group_id": %d}`, f.project, id, b, b1))
	require.NoError(t, f.svc.ReassignGroup(f.ctx, actor, in))
	in = decode[apidoc.ReassignInput](t, fmt.Sprintf(`{"project_id": "%d", "api_ids": "%d", "first_group_id": "%d", "second_group_id": ""}`, f.project, id, a))
	require.NoError(t, f.svc.ReassignGroup(f.ctx, actor, in))
	api, err = f.svc.GetAPI(f.ctx, f.project, id)
	require.NoError(t, err)
	assert.Equal(t, a, *api.GroupFirstID)
	assert.Nil(t, api.GroupSecondID)

	in = decode[apidoc.ReassignInput](t, fmt.Sprintf(`{"project_id": %d, "api_ids": [%d], "first_group_id": %d, "second_group_id": %d}`, f.project, id, a, b1))
	assert.ErrorIs(t, f.svc.ReassignGroup(f.ctx, actor, in), apidoc.ErrGroupNotFound)

	in = decode[apidoc.ReassignInput](t, fmt.Sprintf(`{"project_id": %d, "api_ids": [], "first_group_id": %d}`, f.project, a))
	assert.ErrorIs(t, f.svc.ReassignGroup(f.ctx, actor, in), apidoc.ErrInvalidParameter)
}

func TestListAPIsNameFilterIsLiteral(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"get_user", "getXuser", "100% done"} {
		in := f.loginInput()
		in.Name = name
		_, err := f.svc.CreateAPI(f.ctx, actor, in)
		require.NoError(t, err)
	}

	for filter, want := range map[string][]string{
		"_":     {"get_user"},
		"t_u":   {"get_user"},
		"%":     {"100% done"},
		"get":   {"get_user", "getXuser"},
		`\`:    nil,
		"nope%": nil,
	} {
		page, err := f.svc.ListAPIs(f.ctx, apidoc.APIQuery{ProjectID: f.project, Name: filter})
		require.NoError(t, err, filter)
		var got []string
		for _, api := range page.Items {
			got = append(got, api.Name)
		}
		assert.Equal(t, want, got, filter)
	}
}

func TestListAPIsClampsPage(t *testing.T) {
	f := newFixture(t)
	g := f.group("bulk")

	for i := 0; i < 5; i++ {
		in := f.loginInput()
		in.Name = fmt.Sprintf("api-%d", i)
		if i < 3 {
			in.FirstGroupID = ptr(g)
		}
		_, err := f.svc.CreateAPI(f.ctx, actor, in)
		require.NoError(t, err)
	}

	page, err := f.svc.ListAPIs(f.ctx, apidoc.APIQuery{ProjectID: f.project, Size: 2, Page: 999})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Number)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "api-4", page.Items[0].Name)

	page, err = f.svc.ListAPIs(f.ctx, apidoc.APIQuery{ProjectID: f.project, FirstGroupID: g, Size: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Count)

	page, err = f.svc.ListAPIs(f.ctx, apidoc.APIQuery{ProjectID: f.project, Name: "-4"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Count)

	_, err = f.svc.ListAPIs(f.ctx, apidoc.APIQuery{ProjectID: 999})
	assert.ErrorIs(t, err, apidoc.ErrProjectNotFound)
}
