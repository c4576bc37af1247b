package descriptor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/core-tools/hsu-procdesc/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatRoomApp() map[string]interface{} {
	return map[string]interface{}{
		"name":   "chat-room",
		"script": "npm",
		"args":   "run preview",
		"env": map[string]interface{}{
			"NODE_ENV": "production",
			"PORT":     4173,
		},
		"instances":          1,
		"autorestart":        true,
		"watch":              false,
		"max_memory_restart": "1G",
		"env_production": map[string]interface{}{
			"NODE_ENV": "production",
		},
	}
}

func document(apps ...map[string]interface{}) map[string]interface{} {
	list := make([]interface{}, 0, len(apps))
	for _, app := range apps {
		list = append(list, app)
	}
	return map[string]interface{}{"apps": list}
}

func minimalApp(name string) map[string]interface{} {
	return map[string]interface{}{"name": name, "script": "node"}
}

func assertFieldError(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err), "expected validation error, got %v", err)
	assert.Equal(t, field, errors.FieldOf(err))
}

func TestLoad_ChatRoom(t *testing.T) {
	descriptors, err := Load(document(chatRoomApp()), LoadOptions{})
	require.NoError(t, err)
	require.Len(t, descriptors, 1)

	d := descriptors[0]
	assert.Equal(t, "chat-room", d.Name())
	assert.Equal(t, "npm", d.Command())
	assert.Equal(t, []string{"run", "preview"}, d.Args())
	assert.Equal(t, 1, d.InstanceCount())
	assert.True(t, d.Autorestart())
	assert.False(t, d.WatchFilesystem())
	assert.Equal(t, int64(1073741824), d.MaxMemoryBeforeRestart())
	assert.True(t, d.HasMemoryCeiling())
	assert.Equal(t, Environment{"NODE_ENV": "production", "PORT": "4173"}, d.Environment())
	assert.Equal(t, []string{"production"}, d.Modes())
	assert.Equal(t, DefaultInstanceVar, d.InstanceVar())
}

func TestLoad_Defaults(t *testing.T) {
	descriptors, err := Load(document(minimalApp("api")), LoadOptions{})
	require.NoError(t, err)
	require.Len(t, descriptors, 1)

	d := descriptors[0]
	assert.Equal(t, 1, d.InstanceCount())
	assert.True(t, d.Autorestart())
	assert.False(t, d.WatchFilesystem())
	assert.False(t, d.HasMemoryCeiling())
	assert.Empty(t, d.Args())
	assert.Empty(t, d.Environment())
	assert.Empty(t, d.Modes())
	assert.Empty(t, d.WorkingDirectory())
}

func TestLoad_Idempotent(t *testing.T) {
	first, err := Load(document(chatRoomApp()), LoadOptions{})
	require.NoError(t, err)
	second, err := Load(document(chatRoomApp()), LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLoad_AccessorsReturnCopies(t *testing.T) {
	descriptors, err := Load(document(chatRoomApp()), LoadOptions{})
	require.NoError(t, err)
	d := descriptors[0]

	env := d.Environment()
	env["PORT"] = "1"
	args := d.Args()
	args[0] = "start"
	overlay, ok := d.Overlay("production")
	require.True(t, ok)
	overlay["NODE_ENV"] = "development"

	assert.Equal(t, "4173", d.Environment()["PORT"])
	assert.Equal(t, "run", d.Args()[0])
	again, _ := d.Overlay("production")
	assert.Equal(t, "production", again["NODE_ENV"])
}

func TestLoad_ArgsList(t *testing.T) {
	app := minimalApp("worker")
	app["args"] = []interface{}{"--queue", "emails and sms"}

	descriptors, err := Load(document(app), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"--queue", "emails and sms"}, descriptors[0].Args())
}

func TestLoad_ArgsQuotedString(t *testing.T) {
	app := minimalApp("worker")
	app["args"] = `--title "chat room" --port=4173`

	descriptors, err := Load(document(app), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"--title", "chat room", "--port=4173"}, descriptors[0].Args())
}

func TestLoad_ArgsQuotedOperators(t *testing.T) {
	app := minimalApp("worker")
	app["args"] = `--filter "a|b" --sep ';'`

	descriptors, err := Load(document(app), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"--filter", "a|b", "--sep", ";"}, descriptors[0].Args())
}

func TestLoad_MultipleApps(t *testing.T) {
	worker := minimalApp("worker")
	worker["instances"] = 4
	worker["autorestart"] = false
	worker["watch"] = true
	worker["cwd"] = "/srv/worker"
	worker["instance_var"] = "INSTANCE_ID"
	worker["max_memory_restart"] = 268435456

	descriptors, err := Load(document(chatRoomApp(), worker), LoadOptions{})
	require.NoError(t, err)
	require.Len(t, descriptors, 2)

	w := descriptors[1]
	assert.Equal(t, "worker", w.Name())
	assert.Equal(t, 4, w.InstanceCount())
	assert.False(t, w.Autorestart())
	assert.True(t, w.WatchFilesystem())
	assert.Equal(t, "/srv/worker", w.WorkingDirectory())
	assert.Equal(t, "INSTANCE_ID", w.InstanceVar())
	assert.Equal(t, int64(268435456), w.MaxMemoryBeforeRestart())
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		raw   map[string]interface{}
		field string
	}{
		{
			name:  "empty document",
			raw:   map[string]interface{}{},
			field: "apps",
		},
		{
			name:  "nil document",
			raw:   nil,
			field: "apps",
		},
		{
			name:  "empty apps list",
			raw:   map[string]interface{}{"apps": []interface{}{}},
			field: "apps",
		},
		{
			name:  "apps is not a list",
			raw:   map[string]interface{}{"apps": "chat-room"},
			field: "apps",
		},
		{
			name:  "app is not a mapping",
			raw:   map[string]interface{}{"apps": []interface{}{"chat-room"}},
			field: "apps[0]",
		},
		{
			name:  "missing name",
			raw:   document(map[string]interface{}{"script": "npm"}),
			field: "apps[0].name",
		},
		{
			name:  "blank name",
			raw:   document(map[string]interface{}{"name": "  ", "script": "npm"}),
			field: "apps[0].name",
		},
		{
			name:  "numeric name",
			raw:   document(map[string]interface{}{"name": 7, "script": "npm"}),
			field: "apps[0].name",
		},
		{
			name:  "missing script",
			raw:   document(map[string]interface{}{"name": "chat-room"}),
			field: "apps[0].script",
		},
		{
			name:  "duplicate name",
			raw:   document(minimalApp("api"), minimalApp("api")),
			field: "apps[1].name",
		},
		{
			name:  "zero instances",
			raw:   document(with(minimalApp("api"), "instances", 0)),
			field: "apps[0].instances",
		},
		{
			name:  "negative instances",
			raw:   document(with(minimalApp("api"), "instances", -1)),
			field: "apps[0].instances",
		},
		{
			name:  "fractional instances",
			raw:   document(with(minimalApp("api"), "instances", 1.5)),
			field: "apps[0].instances",
		},
		{
			name:  "string instances",
			raw:   document(with(minimalApp("api"), "instances", "max")),
			field: "apps[0].instances",
		},
		{
			name:  "unparseable memory size",
			raw:   document(with(minimalApp("api"), "max_memory_restart", "abc")),
			field: "apps[0].max_memory_restart",
		},
		{
			name:  "zero memory size",
			raw:   document(with(minimalApp("api"), "max_memory_restart", 0)),
			field: "apps[0].max_memory_restart",
		},
		{
			name:  "non-string env value",
			raw:   document(with(minimalApp("api"), "env", map[string]interface{}{"PORT": map[string]interface{}{}})),
			field: "apps[0].env.PORT",
		},
		{
			name:  "null env value",
			raw:   document(with(minimalApp("api"), "env", map[string]interface{}{"PORT": nil})),
			field: "apps[0].env.PORT",
		},
		{
			name:  "env is a list",
			raw:   document(with(minimalApp("api"), "env", []interface{}{"PORT=1"})),
			field: "apps[0].env",
		},
		{
			name:  "non-string overlay value",
			raw:   document(with(minimalApp("api"), "env_production", map[string]interface{}{"HOSTS": []interface{}{"a"}})),
			field: "apps[0].env_production.HOSTS",
		},
		{
			name:  "non-string args token",
			raw:   document(with(minimalApp("api"), "args", []interface{}{"run", 3})),
			field: "apps[0].args[1]",
		},
		{
			name:  "unterminated quote in args",
			raw:   document(with(minimalApp("api"), "args", `run "preview`)),
			field: "apps[0].args",
		},
		{
			name:  "pipe in args",
			raw:   document(with(minimalApp("api"), "args", "run preview --filter=a|b")),
			field: "apps[0].args",
		},
		{
			name:  "command chain in args",
			raw:   document(with(minimalApp("api"), "args", "run build && run preview")),
			field: "apps[0].args",
		},
		{
			name:  "semicolon in args",
			raw:   document(with(minimalApp("api"), "args", "a; b")),
			field: "apps[0].args",
		},
		{
			name:  "redirect in args",
			raw:   document(with(minimalApp("api"), "args", "--port>3000 serve")),
			field: "apps[0].args",
		},
		{
			name:  "non-boolean autorestart",
			raw:   document(with(minimalApp("api"), "autorestart", "yes")),
			field: "apps[0].autorestart",
		},
		{
			name:  "non-boolean watch",
			raw:   document(with(minimalApp("api"), "watch", []interface{}{"src"})),
			field: "apps[0].watch",
		},
		{
			name:  "empty instance var",
			raw:   document(with(minimalApp("api"), "instance_var", "")),
			field: "apps[0].instance_var",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			descriptors, err := Load(tt.raw, LoadOptions{})
			assert.Nil(t, descriptors)
			assertFieldError(t, err, tt.field)
		})
	}
}

func TestLoad_ErrorInLaterEntryRejectsAll(t *testing.T) {
	descriptors, err := Load(document(minimalApp("api"), with(minimalApp("worker"), "instances", 0)), LoadOptions{})
	assert.Nil(t, descriptors)
	assertFieldError(t, err, "apps[1].instances")
}

func TestLoad_CheckOrder(t *testing.T) {
	tests := []struct {
		name  string
		app   map[string]interface{}
		field string
	}{
		{
			name:  "instances before env",
			app:   with(with(minimalApp("api"), "instances", 0), "env", map[string]interface{}{"X": map[string]interface{}{}}),
			field: "apps[0].instances",
		},
		{
			name:  "memory before env",
			app:   with(with(minimalApp("api"), "max_memory_restart", "abc"), "env", map[string]interface{}{"X": []interface{}{1}}),
			field: "apps[0].max_memory_restart",
		},
		{
			name:  "instances before memory",
			app:   with(with(minimalApp("api"), "instances", -1), "max_memory_restart", "abc"),
			field: "apps[0].instances",
		},
		{
			name:  "memory before args",
			app:   with(with(minimalApp("api"), "max_memory_restart", "0"), "args", "a|b"),
			field: "apps[0].max_memory_restart",
		},
		{
			name:  "script before instances",
			app:   with(map[string]interface{}{"name": "api"}, "instances", 0),
			field: "apps[0].script",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(document(tt.app), LoadOptions{})
			assertFieldError(t, err, tt.field)
		})
	}
}

func TestLoad_Strict(t *testing.T) {
	app := with(minimalApp("api"), "exec_mode", "cluster")

	_, err := Load(document(app), LoadOptions{})
	assert.NoError(t, err)

	_, err = Load(document(app), LoadOptions{Strict: true})
	assertFieldError(t, err, "apps[0].exec_mode")

	raw := document(chatRoomApp())
	_, err = Load(raw, LoadOptions{Strict: true})
	assert.NoError(t, err)

	raw["deploy"] = map[string]interface{}{}
	_, err = Load(raw, LoadOptions{Strict: true})
	assertFieldError(t, err, "deploy")
}

func TestLoadFile(t *testing.T) {
	for _, filename := range []string{"ecosystem.yaml", "ecosystem.json"} {
		t.Run(filename, func(t *testing.T) {
			descriptors, err := LoadFile(filepath.Join("testdata", filename), LoadOptions{Strict: true})
			require.NoError(t, err)

			expected, err := Load(document(chatRoomApp()), LoadOptions{})
			require.NoError(t, err)
			assert.Equal(t, expected, descriptors)
		})
	}
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), LoadOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsIOError(err))

	tmpFile := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("apps: [unclosed\n"), 0o644))
	_, err = LoadFile(tmpFile, LoadOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	emptyFile := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(emptyFile, []byte("apps: []\n"), 0o644))
	_, err = LoadFile(emptyFile, LoadOptions{})
	assertFieldError(t, err, "apps")
}

func with(app map[string]interface{}, key string, value interface{}) map[string]interface{} {
	app[key] = value
	return app
}
