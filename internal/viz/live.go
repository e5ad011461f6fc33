package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/usvsim/internal/core"
	"github.com/san-kum/usvsim/internal/models"
	"github.com/san-kum/usvsim/internal/sim"
	"github.com/san-kum/usvsim/internal/task"
)

const (
	width           = 60
	height          = 20
	historyCapacity = 300
	trailCapacity   = 200
	frameRate       = 30
)

type TickMsg time.Time

type point struct{ x, y float64 }

// Model steps a VecEnv with a policy and renders one followed environment.
type Model struct {
	env    *sim.VecEnv
	policy core.Policy
	title  string

	obs           *mat.Dense
	stepsPerFrame int
	followed      int
	running       bool
	showHelp      bool
	err           error

	canvas        *Canvas
	trail         []point
	rewardHistory []float64
	lastReward    float64
}

// NewModel resets env and prepares the view. stepsPerFrame environment
// steps are taken per redraw.
func NewModel(env *sim.VecEnv, policy core.Policy, title string, stepsPerFrame int) (Model, error) {
	obs, err := env.Reset()
	if err != nil {
		return Model{}, err
	}
	if stepsPerFrame < 1 {
		stepsPerFrame = 1
	}
	return Model{
		env:           env,
		policy:        policy,
		title:         title,
		obs:           obs,
		stepsPerFrame: stepsPerFrame,
		running:       true,
		canvas:        NewCanvas(width, height),
		trail:         make([]point, 0, trailCapacity),
		rewardHistory: make([]float64, 0, historyCapacity),
	}, nil
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Err returns the error that stopped the simulation, if any.
func (m Model) Err() error { return m.err }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "tab":
			m.followed = (m.followed + 1) % m.env.NumEnvs()
			m.trail = m.trail[:0]
		case "?":
			m.showHelp = !m.showHelp
		}
		return m, nil

	case TickMsg:
		if m.running && m.err == nil {
			for i := 0; i < m.stepsPerFrame; i++ {
				if err := m.step(); err != nil {
					m.err = err
					m.running = false
					break
				}
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) step() error {
	actions, err := m.policy.Act(m.obs)
	if err != nil {
		return err
	}
	res, err := m.env.Step(actions)
	if err != nil {
		return err
	}
	m.obs = res.Observations

	m.lastReward = floats.Sum(res.Rewards) / float64(len(res.Rewards))
	m.rewardHistory = append(m.rewardHistory, m.lastReward)
	if len(m.rewardHistory) > historyCapacity {
		m.rewardHistory = m.rewardHistory[1:]
	}

	if res.Dones[m.followed] {
		m.trail = m.trail[:0]
		return nil
	}
	x := m.env.PlatformState(m.followed)
	m.trail = append(m.trail, point{x[models.StateX], x[models.StateY]})
	if len(m.trail) > trailCapacity {
		m.trail = m.trail[1:]
	}
	return nil
}

func (m *Model) reset() {
	obs, err := m.env.Reset()
	if err != nil {
		m.err = err
		return
	}
	m.obs = obs
	m.err = nil
	m.trail = m.trail[:0]
	m.rewardHistory = m.rewardHistory[:0]
}

func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.title)) + "\n")
	switch {
	case m.err != nil:
		s.WriteString(errorStyle.Render("ERROR: "+m.err.Error()) + "\n\n")
	case m.running:
		s.WriteString(statusRunning.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(statusPaused.Render("PAUSED") + "\n\n")
	}

	if len(m.rewardHistory) > 1 {
		chart := asciigraph.Plot(m.rewardHistory, asciigraph.Height(5), asciigraph.Width(36), asciigraph.Caption("mean reward"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	outcomes := m.env.Outcomes()
	x := m.env.PlatformState(m.followed)
	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Step", fmt.Sprintf("%d", m.env.StepCount()))
	row("Reward", fmt.Sprintf("%.3f", m.lastReward))
	row("Episodes", fmt.Sprintf("%d", outcomes.Episodes))
	row("Success", ProgressBar(outcomes.SuccessRate(), 16)+fmt.Sprintf(" %.0f%%", 100*outcomes.SuccessRate()))
	row("Out of bounds", fmt.Sprintf("%d", outcomes.OutOfBounds))
	row("Timeouts", fmt.Sprintf("%d", outcomes.Timeouts))

	s.WriteString("\n" + headerStyle.Render(fmt.Sprintf("ENV %d", m.followed)) + "\n")
	row("Position", fmt.Sprintf("%.2f, %.2f", x[models.StateX], x[models.StateY]))
	row("Heading", fmt.Sprintf("%.1f°", x[models.StateYaw]*180/math.Pi))
	row("Speed", fmt.Sprintf("%.2f m/s", math.Hypot(x[models.StateVX], x[models.StateVY])))
	row("Progress", fmt.Sprintf("%d", m.env.Progress()[m.followed]))

	s.WriteString(helpStyle.Render("SP:Pause R:Reset TAB:Next env ?:Help Q:Quit"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))

	if m.showHelp {
		return `
  Space - Pause/Resume
  R     - Reset every environment
  Tab   - Follow the next environment
  ?     - Toggle this help
  Q     - Quit
` + "\n" + mainView
	}
	return mainView
}

// draw renders the followed platform, its trail and its goal in a window
// centred on the goal.
func (m *Model) draw() {
	m.canvas.Clear()
	goals, goalRot := m.env.Goals()
	gx, gy := goals.At(m.followed, 0), goals.At(m.followed, 1)
	x := m.env.PlatformState(m.followed)

	span := math.Max(2, 1.2*math.Hypot(x[models.StateX]-gx, x[models.StateY]-gy))
	vp := viewport{cx: gx, cy: gy, span: span, w: width * 2, h: height * 4}

	px, py := vp.project(gx, gy)
	m.canvas.DrawCircle(px, py, 2)
	if m.env.Task().Label() == task.LabelGoToPose {
		heading := core.Yaw([4]float64{goalRot.At(m.followed, 0), goalRot.At(m.followed, 1), goalRot.At(m.followed, 2), goalRot.At(m.followed, 3)})
		hx, hy := vp.project(gx+0.15*span*math.Cos(heading), gy+0.15*span*math.Sin(heading))
		m.canvas.DrawLine(px, py, hx, hy)
	}

	for _, p := range m.trail {
		m.canvas.Set(vp.project(p.x, p.y))
	}

	// Platform as a triangle pointing along its heading.
	size := 0.06 * span
	yaw := x[models.StateYaw]
	var verts [3][2]int
	for i, a := range []float64{0, 2.5, -2.5} {
		r := size
		if i > 0 {
			r = size * 0.7
		}
		verts[i][0], verts[i][1] = vp.project(x[models.StateX]+r*math.Cos(yaw+a), x[models.StateY]+r*math.Sin(yaw+a))
	}
	for i := range verts {
		j := (i + 1) % len(verts)
		m.canvas.DrawLine(verts[i][0], verts[i][1], verts[j][0], verts[j][1])
	}
}
