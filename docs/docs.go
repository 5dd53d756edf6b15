// Package docs is generated by swag init from the handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/login": {
            "post": {
                "description": "Returns an opaque session token and also stores it in the cookie session.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Log in with username and password",
                "parameters": [
                    {
                        "description": "Credentials",
                        "name": "input",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.loginRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Result"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/services.Result"}}
                }
            }
        },
        "/api/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "End the current session",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Result"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/services.Result"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/services.Result"}}
                }
            }
        },
        "/api/password/change": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["password"],
                "summary": "Change the password of the logged-in user",
                "parameters": [
                    {
                        "description": "Current and new password",
                        "name": "input",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.changeReq"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Result"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/services.Result"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/services.Result"}}
                }
            }
        },
        "/api/password/forgot": {
            "post": {
                "description": "Mails a reset link. By default the answer is the same whether or not the email is registered.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["password"],
                "summary": "Request a password reset",
                "parameters": [
                    {
                        "description": "Account email",
                        "name": "input",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.forgotReq"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Result"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/services.Result"}}
                }
            }
        },
        "/api/password/reset": {
            "post": {
                "description": "The token is single use. All sessions of the account are ended.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["password"],
                "summary": "Set a new password with a reset token",
                "parameters": [
                    {
                        "description": "Token and new password",
                        "name": "input",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.resetReq"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Result"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/services.Result"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/services.Result"}}
                }
            }
        },
        "/api/password/validate": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["password"],
                "summary": "Check a reset token before showing the new-password form",
                "parameters": [
                    {
                        "description": "Reset token",
                        "name": "input",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.validateReq"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Result"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/services.Result"}}
                }
            }
        },
        "/api/profile": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["profile"],
                "summary": "Current user's profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Result"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/services.Result"}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["profile"],
                "summary": "Update email, display name or phone",
                "parameters": [
                    {
                        "description": "Fields to change",
                        "name": "input",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/models.ProfileUpdate"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Result"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/services.Result"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/services.Result"}}
                }
            }
        },
        "/api/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a new account",
                "parameters": [
                    {
                        "description": "Registration data",
                        "name": "input",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/models.Registration"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/services.Result"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/services.Result"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/services.Result"}}
                }
            }
        },
        "/api/session": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Check whether a session token is valid",
                "parameters": [
                    {"type": "string", "description": "Session token", "name": "token", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Result"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/services.Result"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.changeReq": {
            "type": "object",
            "properties": {
                "current_password": {"type": "string"},
                "new_password": {"type": "string"}
            }
        },
        "handlers.forgotReq": {
            "type": "object",
            "properties": {"email": {"type": "string"}}
        },
        "handlers.loginRequest": {
            "type": "object",
            "properties": {
                "password": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "handlers.resetReq": {
            "type": "object",
            "properties": {
                "new_password": {"type": "string"},
                "token": {"type": "string"}
            }
        },
        "handlers.validateReq": {
            "type": "object",
            "properties": {"token": {"type": "string"}}
        },
        "models.ProfileUpdate": {
            "type": "object",
            "properties": {
                "display_name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"}
            }
        },
        "models.Registration": {
            "type": "object",
            "required": ["email", "password", "username"],
            "properties": {
                "display_name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "phone": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "models.UserProfile": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "display_name": {"type": "string"},
                "email": {"type": "string"},
                "id": {"type": "string"},
                "last_login_at": {"type": "string"},
                "phone": {"type": "string"},
                "status": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "services.Result": {
            "type": "object",
            "properties": {
                "expiresAt": {"type": "string"},
                "message": {"type": "string"},
                "profile": {"$ref": "#/definitions/models.UserProfile"},
                "success": {"type": "boolean"},
                "token": {"type": "string"},
                "userId": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Chatdesk Auth API",
	Description:      "Accounts, sessions and password reset for the chatdesk front end.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
