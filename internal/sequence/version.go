package sequence

// EngineVersion identifies the engine release recorded alongside
// persisted state rows, for diagnosing state written by older builds.
const EngineVersion = "0.3.0"
