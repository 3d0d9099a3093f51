// ABOUTME: The agent pipeline diagram shown before the first chat turn and served by the demo backend.
// ABOUTME: Declares the highlight class styles that Annotate's directives refer to.
package diagram

// Pipeline is the routing graph of the chat agent in mermaid flowchart
// syntax. Every node in the intent table and the emergency node appear in it.
const Pipeline = `%%{init: {'flowchart': {'curve': 'linear'}}}%%
graph TD;
	__start__([<p>__start__</p>]):::first
	router(router)
	device_expert(device_expert)
	health_analyst(health_analyst)
	visualizer(visualizer)
	emergency_advice(emergency_advice)
	general_assistant(general_assistant)
	__end__([<p>__end__</p>]):::last
	__start__ --> router;
	router -.-> device_expert;
	router -.-> health_analyst;
	router -.-> visualizer;
	router -.-> general_assistant;
	health_analyst -.-> emergency_advice;
	health_analyst -.-> __end__;
	device_expert --> __end__;
	visualizer --> __end__;
	emergency_advice --> __end__;
	general_assistant --> __end__;
	classDef default fill:#f2f0ff,line-height:1.2
	classDef first fill-opacity:0
	classDef last fill:#bfb6fc
	classDef activeNode fill:#4ade80,stroke:#166534,stroke-width:2px
	classDef activeEmergencyNode fill:#f87171,stroke:#991b1b,stroke-width:2px`
