package led

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColour(t *testing.T) {
	for _, c := range Colours() {
		got, err := ParseColour(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	got, err := ParseColour("WHITE")
	require.NoError(t, err)
	assert.Equal(t, White, got)

	_, err = ParseColour("purple")
	assert.Error(t, err)
}

func TestMirrorTracksWrites(t *testing.T) {
	m := NewMirror(NewNoop(newTestLogger()))

	require.NoError(t, m.SetColour(Yellow, 7))
	require.NoError(t, m.SetArm(Arm3, 32))

	levels := m.Levels()
	assert.Equal(t, uint8(7), levels[0][Yellow])
	assert.Equal(t, uint8(7), levels[1][Yellow])
	for c := range levels[2] {
		assert.Equal(t, uint8(32), levels[2][c])
	}

	require.NoError(t, m.AllOff())
	assert.Equal(t, Levels{}, m.Levels())
}

func TestMirrorSkipsFailedWrites(t *testing.T) {
	p, err := newPiGlow(&fakeChip{failOn: 1}, 100, newTestLogger())
	require.NoError(t, err)
	m := NewMirror(p)

	assert.Error(t, m.SetColour(Red, 50))
	assert.Equal(t, Levels{}, m.Levels())
}

func TestNoopClosed(t *testing.T) {
	n := NewNoop(newTestLogger())
	require.NoError(t, n.SetColour(White, 1))
	require.NoError(t, n.Close())
	assert.ErrorIs(t, n.SetArm(Arm1, 1), ErrClosed)
}

func TestNewDrivers(t *testing.T) {
	p, err := New(Options{Driver: DriverNoop}, newTestLogger())
	require.NoError(t, err)
	assert.NotNil(t, p)

	_, err = New(Options{Driver: "laser"}, newTestLogger())
	assert.Error(t, err)

	_, err = New(Options{Driver: DriverSysfs}, newTestLogger())
	assert.Error(t, err, "sysfs without a mapping must fail")
}

func TestDetectBoard(t *testing.T) {
	model := detectBoard()
	assert.NotEmpty(t, model)
}

func TestParseSysfsMap(t *testing.T) {
	leds, err := ParseSysfsMap("white=ACT, red = PWR")
	require.NoError(t, err)
	assert.Equal(t, map[Colour]string{White: "ACT", Red: "PWR"}, leds)

	_, err = ParseSysfsMap("white")
	assert.Error(t, err)

	_, err = ParseSysfsMap("magenta=ACT")
	assert.Error(t, err)
}

func makeSysfsLED(t *testing.T, root, name, maxBrightness string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trigger"), []byte("mmc0"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brightness"), []byte("0"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "max_brightness"), []byte(maxBrightness), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestSysfsPeripheral(t *testing.T) {
	root := t.TempDir()
	makeSysfsLED(t, root, "ACT", "255\n")
	makeSysfsLED(t, root, "PWR", "1\n")

	s, err := newSysfs(root, map[Colour]string{White: "ACT", Red: "PWR"})
	require.NoError(t, err)
	assert.Equal(t, "none", readFile(t, filepath.Join(root, "ACT", "trigger")))

	require.NoError(t, s.SetColour(White, 64))
	assert.Equal(t, "64", readFile(t, filepath.Join(root, "ACT", "brightness")))

	// Dim levels still light a binary LED.
	require.NoError(t, s.SetColour(Red, 3))
	assert.Equal(t, "1", readFile(t, filepath.Join(root, "PWR", "brightness")))

	// Unmapped colours are ignored.
	require.NoError(t, s.SetColour(Blue, 200))

	require.NoError(t, s.SetArm(Arm2, 255))
	assert.Equal(t, "255", readFile(t, filepath.Join(root, "ACT", "brightness")))
	assert.Equal(t, "1", readFile(t, filepath.Join(root, "PWR", "brightness")))

	require.NoError(t, s.Close())
	assert.Equal(t, "0", readFile(t, filepath.Join(root, "ACT", "brightness")))
	assert.ErrorIs(t, s.SetColour(White, 1), ErrClosed)
}

func TestSysfsMissingLED(t *testing.T) {
	_, err := newSysfs(t.TempDir(), map[Colour]string{White: "nope"})
	assert.Error(t, err)
}
