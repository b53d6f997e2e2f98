package pathing

import (
	"errors"
	"strings"
	"testing"
	"time"

	"edrs-docstore/internal/domain/document"
	"edrs-docstore/internal/domain/user"
	apperrors "edrs-docstore/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver(DefaultRoot, DefaultRoleFolders())
	require.NoError(t, err)
	return r
}

func scenarioInput() KeyInput {
	return KeyInput{
		Role:        user.RoleProcessEngineer,
		UserID:      5,
		ProjectName: "haradh_expansion",
		Type:        document.TypePIDDiagram,
		Timestamp:   time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC),
		Filename:    "PID-001.pdf",
	}
}

func TestResolve_Scenario(t *testing.T) {
	r := newTestResolver(t)

	key, err := r.Resolve(scenarioInput())
	require.NoError(t, err)
	assert.Equal(t,
		"rejlers-abudhabi/process-engineers/5/projects/haradh_expansion/pid-diagrams/2025/11/PID-001.pdf",
		key.String())
}

func TestResolve_Deterministic(t *testing.T) {
	r := newTestResolver(t)

	first, err := r.Resolve(scenarioInput())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := r.Resolve(scenarioInput())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolve_RoleFolders(t *testing.T) {
	r := newTestResolver(t)

	cases := map[user.Role]string{
		user.RoleAdministrator:      "administrators",
		user.RoleProjectManager:     "project-managers",
		user.RoleSeniorEngineer:     "project-managers",
		user.RoleLeadEngineer:       "lead-engineers",
		user.RoleDesignEngineer:     "design-engineers",
		user.RoleQAQCEngineer:       "qa-qc-engineers",
		user.RoleInstrumentEngineer: "engineers",
		user.RoleMechanicalEngineer: "engineers",
		user.RoleSafetyEngineer:     "engineers",
	}
	for role, folder := range cases {
		in := scenarioInput()
		in.Role = role
		key, err := r.Resolve(in)
		require.NoError(t, err, role.String())
		assert.True(t, strings.HasPrefix(key.String(), "rejlers-abudhabi/"+folder+"/5/"), role.String())
	}
}

func TestResolve_UnknownRoleIsConfigurationError(t *testing.T) {
	r := newTestResolver(t)

	for _, role := range []user.Role{user.RoleUnknown, user.Role(200)} {
		in := scenarioInput()
		in.Role = role
		key, err := r.Resolve(in)
		assert.Empty(t, key)
		assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
	}
}

func TestResolve_UnknownTypeIsConfigurationError(t *testing.T) {
	r := newTestResolver(t)

	in := scenarioInput()
	in.Type = document.Type(42)
	_, err := r.Resolve(in)
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
}

func TestResolve_TraversalIsValidationError(t *testing.T) {
	r := newTestResolver(t)

	projects := []string{"../../etc", "..", ".", "a/../b", `a\..\b`, "./x"}
	for _, p := range projects {
		in := scenarioInput()
		in.ProjectName = p
		key, err := r.Resolve(in)
		assert.Empty(t, key, p)
		assert.True(t, errors.Is(err, apperrors.ErrValidation), p)
	}

	filenames := []string{"../../etc/passwd", "..", `..\boot.ini`, "sub/PID.pdf", `sub\PID.pdf`}
	for _, f := range filenames {
		in := scenarioInput()
		in.Filename = f
		key, err := r.Resolve(in)
		assert.Empty(t, key, f)
		assert.True(t, errors.Is(err, apperrors.ErrValidation), f)
	}
}

func TestResolve_EmptyAfterSanitizationIsValidationError(t *testing.T) {
	r := newTestResolver(t)

	in := scenarioInput()
	in.ProjectName = "   "
	_, err := r.Resolve(in)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	in = scenarioInput()
	in.Filename = "???"
	_, err = r.Resolve(in)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestResolve_InvalidUserAndTimestamp(t *testing.T) {
	r := newTestResolver(t)

	in := scenarioInput()
	in.UserID = 0
	_, err := r.Resolve(in)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	in = scenarioInput()
	in.Timestamp = time.Time{}
	_, err = r.Resolve(in)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestResolve_TimestampUsesUTC(t *testing.T) {
	r := newTestResolver(t)

	dubai := time.FixedZone("GST", 4*60*60)
	in := scenarioInput()
	in.Timestamp = time.Date(2025, time.December, 1, 2, 0, 0, 0, dubai)

	key, err := r.Resolve(in)
	require.NoError(t, err)
	assert.Contains(t, key.String(), "/2025/11/")
}

func TestSanitizeProjectName(t *testing.T) {
	cases := map[string]string{
		"haradh_expansion":  "haradh_expansion",
		"Haradh Expansion":  "haradh_expansion",
		"Phase 2/North":     "phase_2-north",
		"Ruwais Résidence":  "ruwais_residence",
		"  Habshan (GT-5) ": "habshan_gt-5",
	}
	for in, want := range cases {
		got, err := SanitizeProjectName(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"PID-001.pdf":                       "PID-001.pdf",
		"PID 001 (rev A).pdf":               "PID_001_rev_A.pdf",
		"Sch\u00e9ma g\u00e9n\u00e9ral.dwg": "Schema_general.dwg",
		"report<final>.xlsx":                "reportfinal.xlsx",
	}
	for in, want := range cases {
		got, err := SanitizeFilename(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := SanitizeFilename("?.")
	assert.True(t, errors.Is(err, apperrors.ErrPathTraversal))

	_, err = SanitizeFilename("bad\x00name.pdf")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = SanitizeFilename(strings.Repeat("a", 252) + ".pdf")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestParseKey(t *testing.T) {
	r := newTestResolver(t)

	parts, err := r.ParseKey("rejlers-abudhabi/process-engineers/5/projects/haradh_expansion/pid-diagrams/2025/11/PID-001.pdf")
	require.NoError(t, err)
	assert.Equal(t, KeyParts{
		RoleFolder:  "process-engineers",
		UserID:      5,
		ProjectName: "haradh_expansion",
		Type:        document.TypePIDDiagram,
		Year:        2025,
		Month:       11,
		Filename:    "PID-001.pdf",
	}, parts)
}

func TestParseKey_Rejects(t *testing.T) {
	r := newTestResolver(t)

	keys := []string{
		"",
		"rejlers-abudhabi/process-engineers/5/projects/haradh_expansion/pid-diagrams/2025/11",
		"other-root/process-engineers/5/projects/haradh_expansion/pid-diagrams/2025/11/PID-001.pdf",
		"rejlers-abudhabi/unknown-folder/5/projects/haradh_expansion/pid-diagrams/2025/11/PID-001.pdf",
		"rejlers-abudhabi/process-engineers/abc/projects/haradh_expansion/pid-diagrams/2025/11/PID-001.pdf",
		"rejlers-abudhabi/process-engineers/-5/projects/haradh_expansion/pid-diagrams/2025/11/PID-001.pdf",
		"rejlers-abudhabi/process-engineers/5/folders/haradh_expansion/pid-diagrams/2025/11/PID-001.pdf",
		"rejlers-abudhabi/process-engineers/5/projects/haradh_expansion/misc/2025/11/PID-001.pdf",
		"rejlers-abudhabi/process-engineers/5/projects/haradh_expansion/pid-diagrams/2025/13/PID-001.pdf",
		"rejlers-abudhabi/process-engineers/5/projects/../pid-diagrams/2025/11/PID-001.pdf",
	}
	for _, k := range keys {
		_, err := r.ParseKey(k)
		assert.True(t, errors.Is(err, apperrors.ErrValidation), k)
	}
}

func TestDeriveAnalysisKey(t *testing.T) {
	r := newTestResolver(t)

	key, err := r.DeriveAnalysisKey(
		"rejlers-abudhabi/process-engineers/5/projects/haradh_expansion/pid-diagrams/2025/11/PID-001.pdf",
		"PID-001 analysis.json")
	require.NoError(t, err)
	assert.Equal(t,
		"rejlers-abudhabi/process-engineers/5/projects/haradh_expansion/analysis-results/2025/11/PID-001_analysis.json",
		key.String())
}

func TestUserPrefix(t *testing.T) {
	r := newTestResolver(t)

	prefix, err := r.UserPrefix(user.RoleSeniorEngineer, 12)
	require.NoError(t, err)
	assert.Equal(t, "rejlers-abudhabi/project-managers/12/", prefix)
	assert.Equal(t, "rejlers-abudhabi/", r.RootPrefix())
}

func TestNewRoleFolders_Validation(t *testing.T) {
	_, err := NewRoleFolders(map[user.Role]string{user.RoleAdministrator: "administrators"})
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration))

	table := map[user.Role]string{}
	for _, role := range user.Roles() {
		table[role] = "engineers"
	}
	table[user.RoleLeadEngineer] = "../leads"
	_, err = NewRoleFolders(table)
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration))

	table[user.RoleLeadEngineer] = "lead-engineers"
	folders, err := NewRoleFolders(table)
	require.NoError(t, err)

	table[user.RoleLeadEngineer] = "mutated"
	folder, err := folders.Folder(user.RoleLeadEngineer)
	require.NoError(t, err)
	assert.Equal(t, "lead-engineers", folder)
}

func TestNewResolver_InvalidRoot(t *testing.T) {
	for _, root := range []string{"", "..", "a/b", "bad root"} {
		_, err := NewResolver(root, DefaultRoleFolders())
		assert.True(t, errors.Is(err, apperrors.ErrConfiguration), root)
	}
}

func TestValidatePrefix(t *testing.T) {
	for _, ok := range []string{
		"rejlers-abudhabi/",
		"rejlers-abudhabi/process-engineers/5/",
		"rejlers-abudhabi/process-engineers/5/projects/haradh_expansion",
	} {
		assert.NoError(t, ValidatePrefix(ok), ok)
	}

	assert.True(t, errors.Is(ValidatePrefix("rejlers-abudhabi/../secrets/"), apperrors.ErrPathTraversal))
	for _, bad := range []string{"", "/", "a//b/", "a/b c/", "a/\x00/"} {
		assert.True(t, errors.Is(ValidatePrefix(bad), apperrors.ErrValidation), bad)
	}
}
