// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vlabsound/internal/audio"
)

var testDevices = []audio.Device{
	{ID: 0, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
	{ID: 1, Name: "Built-in Mic", MaxInputChannels: 1, DefaultSampleRate: 44100},
	{ID: 2, Name: "USB Interface", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 96000},
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func send(t *testing.T, m DeviceListModel, msgs ...tea.Msg) (DeviceListModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(DeviceListModel)
	}
	return m, cmd
}

func loaded(t *testing.T) DeviceListModel {
	t.Helper()
	m := NewDeviceListModel(func() ([]audio.Device, error) { return testDevices, nil })
	msg := m.Init()()
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 30}, msg)
	return m
}

func TestInitListsInputDevicesOnly(t *testing.T) {
	m := loaded(t)
	require.Len(t, m.devices, 2)
	assert.Equal(t, "Built-in Mic", m.devices[0].Name)
	assert.Equal(t, "USB Interface", m.devices[1].Name)
	assert.Contains(t, m.View(), "Input Devices")
	assert.Contains(t, m.View(), "Built-in Mic")
}

func TestPickDeviceAndRate(t *testing.T) {
	m := loaded(t)

	m, _ = send(t, m, keyMsg("down"), keyMsg("down"), keyMsg("enter"))
	require.Equal(t, ConfigScreen, m.activeScreen)
	assert.Equal(t, 1, m.selectedIndex, "cursor stops at the last device")
	assert.Equal(t, 3, m.sampleRateIndex, "starts at the device default rate")
	assert.Contains(t, m.View(), "USB Interface")

	m, cmd := send(t, m, keyMsg("up"), keyMsg("enter"))
	require.NotNil(t, m.Selection())
	assert.Equal(t, 2, m.Selection().Device.ID)
	assert.Equal(t, 88200.0, m.Selection().SampleRate)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestEscReturnsToList(t *testing.T) {
	m := loaded(t)
	m, _ = send(t, m, keyMsg("enter"), keyMsg("esc"))
	assert.Equal(t, ListScreen, m.activeScreen)
	assert.Nil(t, m.Selection())
}

func TestQuitWithoutSelection(t *testing.T) {
	m := loaded(t)
	m, cmd := send(t, m, keyMsg("q"))
	assert.Nil(t, m.Selection())
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestFetchError(t *testing.T) {
	m := NewDeviceListModel(func() ([]audio.Device, error) { return nil, errors.New("no host") })
	m, _ = send(t, m, m.Init()())
	assert.Contains(t, m.View(), "no host")
}

func TestNearestRate(t *testing.T) {
	assert.Equal(t, 0, nearestRate(44100))
	assert.Equal(t, 1, nearestRate(47000))
	assert.Equal(t, 3, nearestRate(192000))
}
