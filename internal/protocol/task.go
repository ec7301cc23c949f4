package protocol

// Task is the closed set of request task names the link answers.
type Task int

const (
	TaskUnknown Task = iota
	TaskStartLink
	TaskSetSwitch
	TaskWLMServerApp
	TaskSetMeasurementOp
	TaskCheckWLMServer
	TaskConfigureWLM
	TaskGetWavelength
)

const replySuffix = "-reply"

var taskNames = map[Task]string{
	TaskStartLink:        "start-link",
	TaskSetSwitch:        "set-switch",
	TaskWLMServerApp:     "wlm-server-app",
	TaskSetMeasurementOp: "set-measurement-op",
	TaskCheckWLMServer:   "check-wlm-server",
	TaskConfigureWLM:     "configure-wlm",
	TaskGetWavelength:    "get-wavelength",
}

var tasksByName = func() map[string]Task {
	out := make(map[string]Task, len(taskNames))
	for task, name := range taskNames {
		out[name] = task
	}
	return out
}()

// KnownTasks lists every task with a reply handler, in handshake order.
func KnownTasks() []Task {
	return []Task{
		TaskStartLink,
		TaskSetSwitch,
		TaskWLMServerApp,
		TaskSetMeasurementOp,
		TaskCheckWLMServer,
		TaskConfigureWLM,
		TaskGetWavelength,
	}
}

func ParseTask(name string) Task {
	if task, ok := tasksByName[name]; ok {
		return task
	}
	return TaskUnknown
}

func (t Task) String() string {
	if name, ok := taskNames[t]; ok {
		return name
	}
	return "unknown"
}

// ReplyName is the task name used in the reply envelope.
func (t Task) ReplyName() string {
	return t.String() + replySuffix
}
