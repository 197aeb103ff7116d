package pub

const (
	blockSchema = `
		{
			"type": "record",
			"name": "Block",
			"namespace": "org.abcikit.model.avro",
			"fields": [
				{ "name": "height", "type": "long" },
				{ "name": "timestamp", "type": "long" },
				{ "name": "appHash", "type": "string" },
				{ "name": "numOfTxs", "type": "int" },
				{ "name": "txs", "type": {
					"type": "array",
					"items": {
						"type": "record",
						"name": "Tx",
						"namespace": "org.abcikit.model.avro",
						"fields": [
							{ "name": "hash", "type": "string" },
							{ "name": "route", "type": "string" },
							{ "name": "sender", "type": "string" },
							{ "name": "code", "type": "int" },
							{ "name": "log", "type": "string" }
						]
					}
				}},
				{ "name": "roots", "type": {
					"type": "array",
					"items": {
						"type": "record",
						"name": "Root",
						"namespace": "org.abcikit.model.avro",
						"fields": [
							{ "name": "namespace", "type": "string" },
							{ "name": "hash", "type": "string" }
						]
					}
				}}
			]
		}
	`
)
